package worker

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"sync/atomic"

	"log/slog"

	"foundry/internal/logging"
	"foundry/internal/protocol"
)

// Options describes worker runtime construction parameters.
type Options struct {
	SocketPath string
	Runner     Runner
	Logger     *slog.Logger
}

// Runtime serves the action protocol over the controller connection.
// Actions are strictly serialized: at most one executes at a time.
type Runtime struct {
	opts   Options
	logger *slog.Logger

	conn     net.Conn
	execMu   sync.Mutex
	stopping atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}
}

// New validates the options and builds a runtime.
func New(opts Options) (*Runtime, error) {
	if opts.SocketPath == "" {
		return nil, errors.New("worker runtime requires a socket path")
	}
	if opts.Runner == nil {
		return nil, errors.New("worker runtime requires a runner")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runtime{
		opts:    opts,
		logger:  logger.With(logging.String(logging.FieldComponent, "worker")),
		stopped: make(chan struct{}),
	}, nil
}

// Run dials the controller socket and serves requests until the connection
// closes, a shutdown is requested, or the context ends.
func (r *Runtime) Run(ctx context.Context) error {
	conn, err := net.Dial("unix", r.opts.SocketPath)
	if err != nil {
		return err
	}
	r.conn = conn

	server := rpc.NewServer()
	if err := server.RegisterName(protocol.ServiceName, &service{runtime: r}); err != nil {
		conn.Close()
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
			r.Shutdown()
		case <-r.stopped:
		}
	}()

	r.logger.Debug("worker connected", logging.String("socket", r.opts.SocketPath))
	server.ServeCodec(jsonrpc.NewServerCodec(conn))
	r.Shutdown()
	return nil
}

// Shutdown closes the controller connection once the in-flight action, if
// any, has finished.
func (r *Runtime) Shutdown() {
	r.stopping.Store(true)
	r.stopOnce.Do(func() {
		go func() {
			r.execMu.Lock()
			defer r.execMu.Unlock()
			if r.conn != nil {
				_ = r.conn.Close()
			}
			close(r.stopped)
		}()
	})
}

// Done is closed once the runtime has fully stopped.
func (r *Runtime) Done() <-chan struct{} {
	return r.stopped
}

type service struct {
	runtime *Runtime
}

// Hello completes the readiness handshake.
func (s *service) Hello(_ protocol.HelloRequest, resp *protocol.HelloResponse) error {
	resp.PID = os.Getpid()
	resp.Version = protocol.Version
	return nil
}

// Execute runs one action. Runner errors are reported in-band as user
// failures; only transport breakage surfaces as an RPC error.
func (s *service) Execute(req protocol.ExecuteRequest, resp *protocol.ExecuteResponse) error {
	r := s.runtime
	if r.stopping.Load() {
		return errors.New("worker is shutting down")
	}

	r.execMu.Lock()
	defer r.execMu.Unlock()

	result, err := r.opts.Runner.Run(context.Background(), req.Payload)
	if err != nil {
		resp.Failed = true
		resp.ErrorMessage = err.Error()
		r.logger.Debug("action failed", logging.String("action_id", req.ActionID), logging.Error(err))
		return nil
	}
	resp.Result = result
	return nil
}

// Shutdown requests worker exit after the current action.
func (s *service) Shutdown(_ protocol.ShutdownRequest, resp *protocol.ShutdownResponse) error {
	resp.Stopping = true
	s.runtime.logger.Debug("shutdown requested")
	s.runtime.Shutdown()
	return nil
}
