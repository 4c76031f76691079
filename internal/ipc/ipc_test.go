package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"foundry/internal/config"
	"foundry/internal/daemon"
	"foundry/internal/fingerprint"
	"foundry/internal/ipc"
	"foundry/internal/logs"
	"foundry/internal/procctl"
	"foundry/internal/protocol"
	"foundry/internal/testsupport"
)

type stubController struct {
	id  string
	pid int

	exitOnce sync.Once
	exited   chan struct{}
}

func (c *stubController) ID() string { return c.id }
func (c *stubController) PID() int   { return c.pid }

func (c *stubController) Run(ctx context.Context, req protocol.ExecuteRequest) procctl.Outcome {
	return procctl.Success([]byte(`{"status":"compiled"}`))
}

func (c *stubController) Stop(ctx context.Context) error {
	c.exitOnce.Do(func() { close(c.exited) })
	return nil
}

func (c *stubController) Kill() error {
	c.exitOnce.Do(func() { close(c.exited) })
	return nil
}

func (c *stubController) Exited() <-chan struct{} { return c.exited }
func (c *stubController) ExitError() error        { return nil }
func (c *stubController) Close() error            { return nil }

type stubSpawner struct {
	mu      sync.Mutex
	spawned int
}

func (s *stubSpawner) Spawn(ctx context.Context, id string, req fingerprint.Requirements) (procctl.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawned++
	return &stubController{id: id, pid: 7000 + s.spawned, exited: make(chan struct{})}, nil
}

type harness struct {
	cfg       *config.Config
	client    *ipc.Client
	classpath []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	d, err := daemon.New(cfg, store, nil, &stubSpawner{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	server, err := ipc.NewServer(ctx, cfg.SocketPath(), d, nil, nil)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	entry := filepath.Join(t.TempDir(), "tool.jar")
	testsupport.WriteFile(t, entry, 48)
	return &harness{cfg: cfg, client: client, classpath: []string{entry}}
}

func TestStatusOverSocket(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !resp.Status.Running {
		t.Fatal("daemon reports not running")
	}
	if resp.Status.SocketPath == "" {
		t.Fatal("status missing socket path")
	}
}

func TestSubmitAndDaemonsOverSocket(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Submit(ipc.SubmitRequest{
		Classpath: h.classpath,
		LogLevel:  "info",
		Payload:   []byte(`{"task":"compile"}`),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Result.Outcome != "success" {
		t.Fatalf("outcome = %q, want success", resp.Result.Outcome)
	}
	if string(resp.Result.Result) != `{"status":"compiled"}` {
		t.Fatalf("result payload = %s", resp.Result.Result)
	}

	daemons, err := h.client.Daemons()
	if err != nil {
		t.Fatalf("Daemons: %v", err)
	}
	if len(daemons.Workers) != 1 {
		t.Fatalf("tracked workers = %d, want 1", len(daemons.Workers))
	}
	if daemons.Workers[0].State != "idle" {
		t.Fatalf("worker state = %q, want idle", daemons.Workers[0].State)
	}
}

func TestSubmitRequiresClasspath(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Submit(ipc.SubmitRequest{}); err == nil {
		t.Fatal("submit without classpath must fail")
	}
}

func TestStopDaemonsOverSocket(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Submit(ipc.SubmitRequest{Classpath: h.classpath}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	resp, err := h.client.StopDaemons()
	if err != nil {
		t.Fatalf("StopDaemons: %v", err)
	}
	if resp.Stopped != 1 {
		t.Fatalf("stopped = %d, want 1", resp.Stopped)
	}
}

func TestSessionLifecycleOverSocket(t *testing.T) {
	h := newHarness(t)

	start, err := h.client.SessionStart("debug")
	if err != nil {
		t.Fatalf("SessionStart: %v", err)
	}
	if start.SessionID == "" {
		t.Fatal("empty session id")
	}

	if _, err := h.client.Submit(ipc.SubmitRequest{
		SessionID: start.SessionID,
		Classpath: h.classpath,
		Kind:      "compile",
	}); err != nil {
		t.Fatalf("Submit in session: %v", err)
	}

	end, err := h.client.SessionEnd(start.SessionID)
	if err != nil {
		t.Fatalf("SessionEnd: %v", err)
	}
	if end.Stopped != 1 {
		t.Fatalf("session end stopped %d workers, want 1", end.Stopped)
	}
}

func TestHistoryOverSocket(t *testing.T) {
	h := newHarness(t)

	if _, err := h.client.Submit(ipc.SubmitRequest{Classpath: h.classpath}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	resp, err := h.client.History(20)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(resp.Events) == 0 {
		t.Fatal("expected journal events")
	}
	if len(resp.Workers) != 1 {
		t.Fatalf("worker history rows = %d, want 1", len(resp.Workers))
	}
}

func TestLogTailSelectsWorkerLog(t *testing.T) {
	h := newHarness(t)

	if err := os.WriteFile(logs.DaemonLogPath(h.cfg.LogDir), []byte("daemon line\n"), 0o644); err != nil {
		t.Fatalf("write daemon log: %v", err)
	}
	workerLog := logs.WorkerLogPath(h.cfg.LogDir, "w-1")
	if err := os.MkdirAll(filepath.Dir(workerLog), 0o755); err != nil {
		t.Fatalf("ensure worker log dir: %v", err)
	}
	if err := os.WriteFile(workerLog, []byte("worker line\n"), 0o644); err != nil {
		t.Fatalf("write worker log: %v", err)
	}

	resp, err := h.client.LogTail(ipc.LogTailRequest{WorkerID: "w-1", Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("LogTail worker: %v", err)
	}
	if len(resp.Lines) != 1 || resp.Lines[0] != "worker line" {
		t.Fatalf("worker tail lines = %#v", resp.Lines)
	}

	resp, err = h.client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("LogTail daemon: %v", err)
	}
	if len(resp.Lines) != 1 || resp.Lines[0] != "daemon line" {
		t.Fatalf("daemon tail lines = %#v", resp.Lines)
	}
}
