package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"foundry/internal/api"
	"foundry/internal/config"
	"foundry/internal/fingerprint"
	"foundry/internal/journal"
	"foundry/internal/logging"
	"foundry/internal/logs"
	"foundry/internal/metrics"
	"foundry/internal/pool"
	"foundry/internal/procctl"
)

// Daemon hosts the worker pool and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal *journal.Store
	spawner procctl.Spawner

	pool    *pool.Pool
	metrics *metrics.Collector
	promReg *prometheus.Registry
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*pool.Session
}

// SubmitRequest describes one action submitted from outside the pool.
type SubmitRequest struct {
	SessionID string
	Classpath []string
	VMArgs    []string
	LogLevel  string
	Kind      string
	ActionID  string
	Payload   []byte
}

// New constructs a daemon with initialized dependencies. A nil spawner
// selects the real process spawner; tests inject fakes.
func New(cfg *config.Config, jstore *journal.Store, logger *slog.Logger, spawner procctl.Spawner) (*Daemon, error) {
	if cfg == nil || jstore == nil {
		return nil, errors.New("daemon requires config and journal")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if spawner == nil {
		spawner = procctl.NewExecSpawner(cfg, logger)
	}

	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		journal:  jstore,
		spawner:  spawner,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		sessions: make(map[string]*pool.Session),
	}, nil
}

// Start acquires the daemon lock and brings up the pool and HTTP surface.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another foundryd instance is already running")
	}

	d.promReg = prometheus.NewRegistry()
	d.metrics = metrics.NewCollector(d.promReg)

	p, err := pool.New(pool.Options{
		Config:  d.cfg,
		Logger:  d.logger,
		Spawner: d.spawner,
		Journal: d.journal,
		Metrics: d.metrics,
	})
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("create pool: %w", err)
	}
	d.pool = p

	d.ctx, d.cancel = context.WithCancel(ctx)

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.teardown()
		return err
	}
	d.api = srv
	if err := d.api.start(d.ctx); err != nil {
		d.teardown()
		return err
	}

	d.running.Store(true)
	d.logger.Info("foundryd started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.Int(logging.FieldPID, os.Getpid()))
	return nil
}

// Stop stops every worker and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.teardown()
	d.running.Store(false)
	d.logger.Info("foundryd stopped",
		logging.String(logging.FieldEventType, "daemon_stop"))
}

func (d *Daemon) teardown() {
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	if d.pool != nil {
		d.pool.Close(context.Background())
		d.pool = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	d.mu.Lock()
	d.sessions = make(map[string]*pool.Session)
	d.mu.Unlock()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Close stops the daemon and closes the journal.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) api.PoolStatus {
	workers := d.Workers()
	d.mu.Lock()
	sessions := len(d.sessions)
	d.mu.Unlock()
	return api.PoolStatus{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		SocketPath:  d.cfg.SocketPath(),
		JournalPath: d.journal.Path(),
		LockPath:    d.lockPath,
		Workers:     workers,
		StateCounts: api.CountStates(workers),
		Sessions:    sessions,
	}
}

// Workers lists every tracked worker.
func (d *Daemon) Workers() []api.WorkerInfo {
	if d.pool == nil {
		return nil
	}
	records := d.pool.Workers()
	infos := make([]api.WorkerInfo, 0, len(records))
	for _, rec := range records {
		infos = append(infos, api.FromRecord(rec))
	}
	return infos
}

// StopWorkers synchronously stops every worker daemon and reports how many
// were stopped.
func (d *Daemon) StopWorkers(ctx context.Context) (int, error) {
	if d.pool == nil {
		return 0, errors.New("pool unavailable")
	}
	return d.pool.StopAll(ctx), nil
}

// Submit runs one action on a matching worker, allocating through the
// session's pool view. A submission without a session runs standalone.
func (d *Daemon) Submit(ctx context.Context, req SubmitRequest) (api.ActionResult, error) {
	if d.pool == nil {
		return api.ActionResult{}, errors.New("pool unavailable")
	}
	logLevel := req.LogLevel
	if req.SessionID != "" {
		session, err := d.session(req.SessionID)
		if err != nil {
			return api.ActionResult{}, err
		}
		if logLevel == "" {
			logLevel = session.LogLevel
		}
	}

	item := pool.WorkItem{
		Requirements: fingerprint.Requirements{
			Classpath: req.Classpath,
			VMArgs:    req.VMArgs,
			LogLevel:  logLevel,
			Kind:      fingerprint.KindByName(req.Kind),
		},
		SessionID: req.SessionID,
		ActionID:  req.ActionID,
		Payload:   req.Payload,
	}

	lease, err := d.pool.Allocate(ctx, item)
	if err != nil {
		return api.ActionResult{}, err
	}
	outcome := lease.Run(ctx, item)
	d.pool.Release(ctx, lease, outcome)

	result := api.ActionResult{
		WorkerID:       lease.WorkerID(),
		PID:            lease.PID(),
		Outcome:        outcome.Kind.String(),
		Result:         outcome.Result,
		FailureMessage: outcome.FailureMessage,
	}
	if outcome.Kind == procctl.OutcomeCrash {
		return result, fmt.Errorf("action failed: %w", pool.ErrWorkerCrashed)
	}
	return result, nil
}

// SessionStart opens a build session at the given log level and returns its
// id. Idle workers at a different level are evicted before the session is
// usable.
func (d *Daemon) SessionStart(ctx context.Context, logLevel string) (string, error) {
	if d.pool == nil {
		return "", errors.New("pool unavailable")
	}
	if logLevel == "" {
		logLevel = d.cfg.LogLevel
	}
	session, err := d.pool.BeginSession(ctx, logLevel)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	d.sessions[session.ID] = session
	d.mu.Unlock()
	return session.ID, nil
}

// SessionEnd closes a session, stopping its session-scoped workers, and
// reports how many were stopped immediately.
func (d *Daemon) SessionEnd(ctx context.Context, id string) (int, error) {
	d.mu.Lock()
	session, ok := d.sessions[id]
	if ok {
		delete(d.sessions, id)
	}
	d.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown session %s", id)
	}
	return session.End(ctx), nil
}

func (d *Daemon) session(id string) (*pool.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session %s", id)
	}
	return session, nil
}

// History returns the most recent journal events, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]api.Event, error) {
	events, err := d.journal.Events(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]api.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, api.FromJournalEvent(ev))
	}
	return out, nil
}

// WorkerHistory returns every worker the journal has seen.
func (d *Daemon) WorkerHistory(ctx context.Context) ([]api.WorkerInfo, error) {
	rows, err := d.journal.Workers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.WorkerInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.FromWorkerRow(row))
	}
	return out, nil
}

// LogPath returns the daemon's primary log file path.
func (d *Daemon) LogPath() string {
	return logs.DaemonLogPath(d.cfg.LogDir)
}

// WorkerLogPath returns the captured output file for one worker id.
func (d *Daemon) WorkerLogPath(workerID string) string {
	return logs.WorkerLogPath(d.cfg.LogDir, workerID)
}

// LockFilePath returns the single-instance lock location.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}

// Running reports whether the daemon has been started and not stopped.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
