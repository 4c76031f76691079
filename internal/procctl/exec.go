package procctl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"foundry/internal/config"
	"foundry/internal/fingerprint"
	"foundry/internal/logging"
	"foundry/internal/logs"
	"foundry/internal/protocol"
)

// ExecSpawner launches real worker processes from the configured binary.
type ExecSpawner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewExecSpawner builds a spawner from daemon configuration.
func NewExecSpawner(cfg *config.Config, logger *slog.Logger) *ExecSpawner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecSpawner{cfg: cfg, logger: logger.With(logging.String(logging.FieldComponent, "procctl"))}
}

// Spawn launches a worker, waits for its dial-back and readiness handshake,
// and returns a controller for it. On failure no process is left behind.
func (s *ExecSpawner) Spawn(ctx context.Context, id string, req fingerprint.Requirements) (Controller, error) {
	binary, err := s.workerBinary()
	if err != nil {
		return nil, err
	}

	socketDir := s.cfg.WorkerSocketDir()
	if err := os.MkdirAll(socketDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure worker socket directory: %w", err)
	}
	socketPath := filepath.Join(socketDir, id+".sock")
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("remove stale worker socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on worker socket: %w", err)
	}

	logPath, err := s.workerLogPath(id)
	if err != nil {
		listener.Close()
		return nil, err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("open worker log: %w", err)
	}

	args := BuildWorkerArgs(socketPath, os.Getpid(), s.cfg.WatchdogInterval, req)
	cmd := exec.Command(binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		listener.Close()
		logFile.Close()
		_ = os.RemoveAll(socketPath)
		return nil, fmt.Errorf("start worker process: %w", err)
	}

	ctrl := &execController{
		id:         id,
		cmd:        cmd,
		socketPath: socketPath,
		logFile:    logFile,
		stopGrace:  time.Duration(s.cfg.StopGrace) * time.Second,
		logger:     s.logger.With(logging.String(logging.FieldWorkerID, id)),
		exited:     make(chan struct{}),
	}
	go ctrl.reap()

	spawnTimeout := time.Duration(s.cfg.SpawnTimeout) * time.Second
	conn, err := acceptDialBack(ctx, listener, ctrl.exited, spawnTimeout)
	listener.Close()
	if err != nil {
		ctrl.abort()
		return nil, fmt.Errorf("worker dial-back: %w", err)
	}
	ctrl.conn = conn
	ctrl.client = rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))

	if err := ctrl.handshake(spawnTimeout); err != nil {
		ctrl.abort()
		return nil, err
	}
	return ctrl, nil
}

func (s *ExecSpawner) workerBinary() (string, error) {
	if s.cfg.WorkerBinary != "" {
		return s.cfg.WorkerBinary, nil
	}
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate worker binary: %w", err)
	}
	return filepath.Join(filepath.Dir(self), "foundry-worker"), nil
}

func (s *ExecSpawner) workerLogPath(id string) (string, error) {
	path := logs.WorkerLogPath(s.cfg.LogDir, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure worker log directory: %w", err)
	}
	return path, nil
}

func acceptDialBack(ctx context.Context, listener net.Listener, exited <-chan struct{}, timeout time.Duration) (net.Conn, error) {
	type acceptResult struct {
		conn net.Conn
		err  error
	}
	results := make(chan acceptResult, 1)
	go func() {
		conn, err := listener.Accept()
		results <- acceptResult{conn: conn, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		return res.conn, res.err
	case <-exited:
		listener.Close()
		return nil, errors.New("worker exited before connecting")
	case <-timer.C:
		listener.Close()
		return nil, fmt.Errorf("no connection within %s", timeout)
	case <-ctx.Done():
		listener.Close()
		return nil, ctx.Err()
	}
}

type execController struct {
	id         string
	cmd        *exec.Cmd
	conn       net.Conn
	client     *rpc.Client
	socketPath string
	logFile    *os.File
	stopGrace  time.Duration
	logger     *slog.Logger

	exited   chan struct{}
	exitErr  error
	killOnce sync.Once
}

func (c *execController) reap() {
	c.exitErr = c.cmd.Wait()
	close(c.exited)
}

func (c *execController) handshake(timeout time.Duration) error {
	call := c.client.Go(protocol.MethodHello, protocol.HelloRequest{}, &protocol.HelloResponse{}, make(chan *rpc.Call, 1))
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case done := <-call.Done:
		if done.Error != nil {
			return fmt.Errorf("worker handshake: %w", done.Error)
		}
		resp := done.Reply.(*protocol.HelloResponse)
		if resp.Version != protocol.Version {
			return fmt.Errorf("worker protocol version %d, expected %d", resp.Version, protocol.Version)
		}
		return nil
	case <-c.exited:
		return errors.New("worker exited during handshake")
	case <-timer.C:
		return fmt.Errorf("worker handshake timed out after %s", timeout)
	}
}

func (c *execController) ID() string { return c.id }

func (c *execController) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Run dispatches one action and blocks until the response arrives or the
// process dies. Context cancellation forcibly ends the worker; there is no
// cooperative cancellation of an in-flight action.
func (c *execController) Run(ctx context.Context, req protocol.ExecuteRequest) Outcome {
	resp := new(protocol.ExecuteResponse)
	call := c.client.Go(protocol.MethodExecute, req, resp, make(chan *rpc.Call, 1))

	select {
	case done := <-call.Done:
		if done.Error != nil {
			select {
			case <-c.exited:
				return Crash(fmt.Errorf("worker process exited: %w", c.exitError()))
			default:
				return Crash(fmt.Errorf("worker channel failed: %w", done.Error))
			}
		}
		if resp.Failed {
			return UserFailure(resp.ErrorMessage)
		}
		return Success(resp.Result)
	case <-c.exited:
		return Crash(fmt.Errorf("worker process exited: %w", c.exitError()))
	case <-ctx.Done():
		c.logger.Warn("context canceled with action in flight, killing worker", logging.Error(ctx.Err()))
		_ = c.Kill()
		<-c.exited
		return Crash(ctx.Err())
	}
}

// Stop asks the worker to exit after its current action, escalating to
// SIGKILL once the grace period passes.
func (c *execController) Stop(ctx context.Context) error {
	call := c.client.Go(protocol.MethodShutdown, protocol.ShutdownRequest{}, &protocol.ShutdownResponse{}, make(chan *rpc.Call, 1))

	timer := time.NewTimer(c.stopGrace)
	defer timer.Stop()

	select {
	case <-c.exited:
		return nil
	case <-call.Done:
	case <-timer.C:
		_ = c.Kill()
		<-c.exited
		return nil
	case <-ctx.Done():
		_ = c.Kill()
		<-c.exited
		return ctx.Err()
	}

	select {
	case <-c.exited:
		return nil
	case <-timer.C:
		_ = c.Kill()
		<-c.exited
		return nil
	case <-ctx.Done():
		_ = c.Kill()
		<-c.exited
		return ctx.Err()
	}
}

// Kill terminates the worker's process group.
func (c *execController) Kill() error {
	var err error
	c.killOnce.Do(func() {
		err = killProcessGroup(c.cmd)
	})
	return err
}

func (c *execController) Exited() <-chan struct{} { return c.exited }

func (c *execController) ExitError() error {
	select {
	case <-c.exited:
		return c.exitErr
	default:
		return nil
	}
}

func (c *execController) exitError() error {
	if err := c.ExitError(); err != nil {
		return err
	}
	return errors.New("exit status 0")
}

// Close releases the IPC channel, log file, and socket path.
func (c *execController) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if c.logFile != nil {
		_ = c.logFile.Close()
	}
	return os.RemoveAll(c.socketPath)
}

// abort tears down a half-spawned worker during a failed Spawn.
func (c *execController) abort() {
	_ = c.Kill()
	<-c.exited
	_ = c.Close()
}
