package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"foundry/internal/daemon"
	"foundry/internal/logging"
	"foundry/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx      context.Context
	cancel   context.CancelFunc
	shutdown func()
	wg       sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. The
// shutdown callback, if non-nil, is invoked when a client requests daemon
// shutdown.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	server := &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpc.NewServer(),
		ctx:       serverCtx,
		cancel:    cancel,
		shutdown:  shutdown,
	}

	svc := &service{daemon: d, logger: logger, ctx: serverCtx, shutdown: server.requestShutdown}
	if err := server.rpcServer.RegisterName("Foundry", svc); err != nil {
		listener.Close()
		cancel()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}
	return server, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"))
	}
}

func (s *Server) requestShutdown() {
	if s.shutdown != nil {
		go s.shutdown()
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) Daemons(_ DaemonsRequest, resp *DaemonsResponse) error {
	resp.Workers = s.daemon.Workers()
	return nil
}

func (s *service) StopDaemons(_ StopDaemonsRequest, resp *StopDaemonsResponse) error {
	s.log().Debug("stop daemons requested")
	stopped, err := s.daemon.StopWorkers(s.ctx)
	if err != nil {
		return err
	}
	resp.Stopped = stopped
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	if len(req.Classpath) == 0 {
		return errors.New("submit requires at least one classpath entry")
	}
	result, err := s.daemon.Submit(s.ctx, daemon.SubmitRequest{
		SessionID: req.SessionID,
		Classpath: req.Classpath,
		VMArgs:    req.VMArgs,
		LogLevel:  req.LogLevel,
		Kind:      req.Kind,
		ActionID:  req.ActionID,
		Payload:   req.Payload,
	})
	if err != nil {
		// The crashed-worker outcome still identifies the worker; let the
		// caller see it alongside the error text.
		resp.Result = result
		return err
	}
	resp.Result = result
	return nil
}

func (s *service) SessionStart(req SessionStartRequest, resp *SessionStartResponse) error {
	id, err := s.daemon.SessionStart(s.ctx, req.LogLevel)
	if err != nil {
		return err
	}
	resp.SessionID = id
	s.log().Info("session opened via IPC",
		logging.String(logging.FieldEventType, "session_started"),
		logging.String(logging.FieldSessionID, id))
	return nil
}

func (s *service) SessionEnd(req SessionEndRequest, resp *SessionEndResponse) error {
	stopped, err := s.daemon.SessionEnd(s.ctx, req.SessionID)
	if err != nil {
		return err
	}
	resp.Stopped = stopped
	s.log().Info("session closed via IPC",
		logging.String(logging.FieldEventType, "session_ended"),
		logging.String(logging.FieldSessionID, req.SessionID))
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	events, err := s.daemon.History(s.ctx, limit)
	if err != nil {
		return err
	}
	workers, err := s.daemon.WorkerHistory(s.ctx)
	if err != nil {
		return err
	}
	resp.Events = events
	resp.Workers = workers
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if req.WorkerID != "" {
		logPath = s.daemon.WorkerLogPath(req.WorkerID)
	}
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	var wait time.Duration
	if req.Follow {
		wait = time.Duration(req.WaitMillis) * time.Millisecond
		if wait <= 0 {
			wait = time.Second
		}
	}
	ctx := s.ctx
	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	chunk, err := logs.Read(ctx, logs.Request{
		Path:     logPath,
		Offset:   req.Offset,
		MaxLines: req.Limit,
		Wait:     wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = chunk.Next
			return nil
		}
		return err
	}
	resp.Lines = chunk.Lines
	resp.Offset = chunk.Next
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.log().Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown_requested"))
	resp.Stopping = true
	if s.shutdown != nil {
		s.shutdown()
	}
	return nil
}
