package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"foundry/internal/fingerprint"
	"foundry/internal/procctl"
	"foundry/internal/protocol"
	"foundry/internal/testsupport"
)

type stubController struct {
	id  string
	pid int

	mu       sync.Mutex
	outcome  *procctl.Outcome
	exitOnce sync.Once
	exited   chan struct{}
}

func (c *stubController) ID() string { return c.id }
func (c *stubController) PID() int   { return c.pid }

func (c *stubController) Run(ctx context.Context, req protocol.ExecuteRequest) procctl.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome != nil {
		out := *c.outcome
		c.outcome = nil
		return out
	}
	return procctl.Success([]byte("done"))
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
	next    *procctl.Outcome
}

func (s *stubSpawner) Spawn(ctx context.Context, id string, req fingerprint.Requirements) (procctl.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawned++
	ctrl := &stubController{id: id, pid: 9000 + s.spawned, exited: make(chan struct{}), outcome: s.next}
	s.next = nil
	return ctrl, nil
}

func newTestDaemon(t *testing.T) (*Daemon, *stubSpawner, []string) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	spawner := &stubSpawner{}

	d, err := New(cfg, store, nil, spawner)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})

	entry := filepath.Join(t.TempDir(), "tool.jar")
	testsupport.WriteFile(t, entry, 32)
	return d, spawner, []string{entry}
}

func TestDaemonStartStop(t *testing.T) {
	d, _, _ := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon not running after Start")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start must fail while running")
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("status reports not running")
	}
	if status.LockPath == "" || status.JournalPath == "" {
		t.Fatalf("status missing paths: %+v", status)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon still running after Stop")
	}
}

func TestDaemonSubmitAndHistory(t *testing.T) {
	d, spawner, classpath := newTestDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	result, err := d.Submit(ctx, SubmitRequest{
		Classpath: classpath,
		LogLevel:  "info",
		Kind:      "general",
		Payload:   []byte(`{"task":"compile"}`),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Outcome != "success" {
		t.Fatalf("outcome = %q, want success", result.Outcome)
	}
	if result.WorkerID == "" || result.PID == 0 {
		t.Fatalf("result missing worker identity: %+v", result)
	}
	if spawner.spawned != 1 {
		t.Fatalf("spawned = %d, want 1", spawner.spawned)
	}

	events, err := d.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected journal events after a submit")
	}

	workers, err := d.WorkerHistory(ctx)
	if err != nil {
		t.Fatalf("WorkerHistory: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("worker history rows = %d, want 1", len(workers))
	}
}

func TestDaemonSessionLifecycle(t *testing.T) {
	d, _, classpath := newTestDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	id, err := d.SessionStart(ctx, "info")
	if err != nil {
		t.Fatalf("SessionStart: %v", err)
	}

	if _, err := d.Submit(ctx, SubmitRequest{
		SessionID: id,
		Classpath: classpath,
		Kind:      "compile",
	}); err != nil {
		t.Fatalf("Submit in session: %v", err)
	}

	stopped, err := d.SessionEnd(ctx, id)
	if err != nil {
		t.Fatalf("SessionEnd: %v", err)
	}
	if stopped != 1 {
		t.Fatalf("SessionEnd stopped %d workers, want 1", stopped)
	}
	if _, err := d.SessionEnd(ctx, id); err == nil {
		t.Fatal("ending an unknown session must fail")
	}
}

func TestDaemonSubmitUnknownSession(t *testing.T) {
	d, _, classpath := newTestDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := d.Submit(ctx, SubmitRequest{SessionID: "missing", Classpath: classpath}); err == nil {
		t.Fatal("submit against unknown session must fail")
	}
}

func TestDaemonStopWorkers(t *testing.T) {
	d, _, classpath := newTestDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := d.Submit(ctx, SubmitRequest{Classpath: classpath}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	stopped, err := d.StopWorkers(ctx)
	if err != nil {
		t.Fatalf("StopWorkers: %v", err)
	}
	if stopped != 1 {
		t.Fatalf("StopWorkers = %d, want 1", stopped)
	}
	if len(d.Workers()) != 0 {
		t.Fatal("workers remain after StopWorkers")
	}
}

func TestDaemonSubmitSurfacesCrash(t *testing.T) {
	d, spawner, classpath := newTestDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	crash := procctl.Crash(errors.New("worker lost"))
	spawner.mu.Lock()
	spawner.next = &crash
	spawner.mu.Unlock()

	result, err := d.Submit(ctx, SubmitRequest{Classpath: classpath})
	if err == nil {
		t.Fatal("crash submit must return an error")
	}
	if result.Outcome != "crash" {
		t.Fatalf("outcome = %q, want crash", result.Outcome)
	}
	if len(d.Workers()) != 0 {
		t.Fatal("crashed worker still tracked")
	}
}
