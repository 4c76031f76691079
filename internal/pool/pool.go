package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"foundry/internal/config"
	"foundry/internal/fingerprint"
	"foundry/internal/journal"
	"foundry/internal/logging"
	"foundry/internal/metrics"
	"foundry/internal/procctl"
	"foundry/internal/protocol"
	"foundry/internal/registry"
)

// WorkItem is one isolated unit of work: the requirements that decide
// worker reuse plus an opaque action payload. Immutable once submitted.
// SessionID, when set, binds the serving worker to that session for
// end-of-session eviction.
type WorkItem struct {
	Requirements fingerprint.Requirements
	SessionID    string
	ActionID     string
	Payload      []byte
}

// Pool dispatches work items to persistent out-of-process workers.
type Pool struct {
	cfg     *config.Config
	logger  *slog.Logger
	reg     *registry.Registry
	spawner procctl.Spawner
	journal *journal.Store
	metrics *metrics.Collector

	mu          sync.Mutex
	controllers map[string]procctl.Controller
	closed      bool
}

// Options carries pool construction dependencies. Journal and Metrics may
// be nil.
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Spawner procctl.Spawner
	Journal *journal.Store
	Metrics *metrics.Collector
}

// New constructs a pool. The registry starts empty; workers only ever enter
// it through Allocate.
func New(opts Options) (*Pool, error) {
	if opts.Config == nil {
		return nil, errors.New("pool requires config")
	}
	if opts.Spawner == nil {
		return nil, errors.New("pool requires a spawner")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		cfg:         opts.Config,
		logger:      logger.With(logging.String(logging.FieldComponent, "pool")),
		reg:         registry.New(),
		spawner:     opts.Spawner,
		journal:     opts.Journal,
		metrics:     opts.Metrics,
		controllers: make(map[string]procctl.Controller),
	}, nil
}

// Lease is exclusive ownership of one worker for one work item. It stays
// valid until released back to the pool.
type Lease struct {
	record *registry.Record
	ctrl   procctl.Controller
}

// WorkerID returns the identity of the leased worker.
func (l *Lease) WorkerID() string { return l.record.ID }

// PID returns the leased worker's OS process id.
func (l *Lease) PID() int { return l.record.PID }

// Run sends one action to the leased worker and blocks until its outcome.
func (l *Lease) Run(ctx context.Context, item WorkItem) procctl.Outcome {
	actionID := item.ActionID
	if actionID == "" {
		actionID = uuid.NewString()
	}
	return l.ctrl.Run(ctx, protocol.ExecuteRequest{ActionID: actionID, Payload: item.Payload})
}

// Allocate returns a worker whose fingerprint matches the item's
// requirements, reusing an idle worker when possible and spawning
// otherwise. The caller owns the returned lease exclusively until Release.
func (p *Pool) Allocate(ctx context.Context, item WorkItem) (*Lease, error) {
	fp, err := fingerprint.Compute(item.Requirements)
	if err != nil {
		return nil, fmt.Errorf("compute fingerprint: %w", err)
	}

	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}

		if rec := p.reg.AcquireIdle(fp); rec != nil {
			rec.BindSession(item.SessionID)
			p.metrics.RecordReuse(true)
			p.journalEvent(rec.ID, journal.EventReused, "fingerprint="+fp.Short())
			p.logger.Debug("reusing idle worker daemon",
				logging.String(logging.FieldWorkerID, rec.ID),
				logging.String(logging.FieldFingerprint, fp.Short()))
			return &Lease{record: rec, ctrl: p.controllerFor(rec.ID)}, nil
		}

		rec, ctrl, err := p.spawn(ctx, item.Requirements, fp)
		if err != nil {
			return nil, err
		}
		rec.Transition(registry.Starting, registry.Idle)
		if !rec.Transition(registry.Idle, registry.Busy) {
			// Another caller claimed the fresh worker first; scan again.
			continue
		}
		rec.BindSession(item.SessionID)
		return &Lease{record: rec, ctrl: ctrl}, nil
	}
}

// Release hands a leased worker back. Normal outcomes, including user-level
// action failures, return the worker to Idle; abnormal termination removes
// it permanently.
func (p *Pool) Release(ctx context.Context, lease *Lease, outcome procctl.Outcome) {
	rec := lease.record
	switch outcome.Kind {
	case procctl.OutcomeCrash:
		if rec.Transition(registry.Busy, registry.Crashed) {
			p.removeCrashed(rec, lease.ctrl, outcome.Err)
		}
	default:
		if rec.RetireRequested() {
			if rec.Transition(registry.Busy, registry.Stopping) {
				p.stopWorker(ctx, rec, lease.ctrl, journal.EventEvictedSession, "retired after session end")
				p.metrics.RecordStops(1)
				p.logger.Info(fmt.Sprintf("Stopped %d worker daemon(s).", 1))
			}
			return
		}
		if rec.Transition(registry.Busy, registry.Idle) {
			p.journalState(rec)
		}
	}
}

// Execute allocates a matching worker, runs the item's action on it, and
// releases the worker. A crash is reported as an error wrapping
// ErrWorkerCrashed; user-level failures come back inside the outcome with a
// nil error.
func (p *Pool) Execute(ctx context.Context, item WorkItem) (procctl.Outcome, error) {
	lease, err := p.Allocate(ctx, item)
	if err != nil {
		return procctl.Outcome{}, err
	}

	start := time.Now()
	outcome := lease.Run(ctx, item)
	p.metrics.ObserveAction(time.Since(start).Seconds())
	p.Release(ctx, lease, outcome)

	if outcome.Kind == procctl.OutcomeCrash {
		return outcome, fmt.Errorf("%w: %v", ErrWorkerCrashed, outcome.Err)
	}
	return outcome, nil
}

// Workers returns a point-in-time view of every tracked record.
func (p *Pool) Workers() []*registry.Record {
	return p.reg.Snapshot()
}

// Close stops every tracked worker and rejects further allocations.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.StopAll(ctx)
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) spawn(ctx context.Context, req fingerprint.Requirements, fp fingerprint.Fingerprint) (*registry.Record, procctl.Controller, error) {
	id := uuid.NewString()
	ctrl, err := p.spawner.Spawn(ctx, id, req)
	if err != nil {
		p.metrics.RecordReuse(false)
		return nil, nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	rec := registry.NewRecord(id, ctrl.PID(), fp)
	// Registration shares the lock with the closed flag so a concurrent
	// Close either sees the record in its stop sweep or this spawn sees
	// the pool closed and tears the process down itself.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = ctrl.Stop(ctx)
		_ = ctrl.Close()
		return nil, nil, ErrPoolClosed
	}
	p.controllers[rec.ID] = ctrl
	p.reg.Add(rec)
	p.mu.Unlock()
	p.metrics.RecordSpawn()
	p.metrics.RecordReuse(false)
	p.metrics.SetTracked(p.reg.Len())

	p.logger.Info("Started worker daemon",
		logging.String(logging.FieldEventType, "worker_spawned"),
		logging.String(logging.FieldWorkerID, rec.ID),
		logging.Int(logging.FieldPID, rec.PID),
		logging.String(logging.FieldKind, rec.Kind.Name),
		logging.String(logging.FieldFingerprint, fp.Short()))
	p.journalUpsert(rec)
	p.journalEvent(rec.ID, journal.EventSpawned, "kind="+rec.Kind.Name)

	go p.watchExit(rec, ctrl)
	return rec, ctrl, nil
}

// watchExit handles worker death outside a Busy period. Busy crashes are
// observed by the blocked Run call and handled in Release; the stop path
// moves records to Stopping before the process exits.
func (p *Pool) watchExit(rec *registry.Record, ctrl procctl.Controller) {
	<-ctrl.Exited()
	if rec.Transition(registry.Idle, registry.Crashed) || rec.Transition(registry.Starting, registry.Crashed) {
		p.removeCrashed(rec, ctrl, ctrl.ExitError())
	}
}

func (p *Pool) removeCrashed(rec *registry.Record, ctrl procctl.Controller, cause error) {
	p.reg.Remove(rec.ID)
	p.untrack(rec.ID)
	_ = ctrl.Close()
	p.metrics.RecordCrash()
	p.metrics.SetTracked(p.reg.Len())

	p.logger.Warn("worker daemon terminated abnormally",
		logging.String(logging.FieldEventType, "worker_crashed"),
		logging.String(logging.FieldWorkerID, rec.ID),
		logging.Int(logging.FieldPID, rec.PID),
		logging.Error(cause))
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	p.journalEvent(rec.ID, journal.EventCrashed, detail)
	p.journalSetState(rec.ID, registry.Crashed)
}

func (p *Pool) untrack(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.controllers, id)
}

func (p *Pool) controllerFor(id string) procctl.Controller {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controllers[id]
}

func (p *Pool) journalEvent(workerID, name, detail string) {
	if p.journal == nil {
		return
	}
	if err := p.journal.RecordEvent(context.Background(), workerID, name, detail); err != nil {
		p.logger.Warn("journal event failed", logging.Error(err))
	}
}

func (p *Pool) journalUpsert(rec *registry.Record) {
	if p.journal == nil {
		return
	}
	row := journal.WorkerRow{
		ID:          rec.ID,
		PID:         rec.PID,
		Fingerprint: rec.Fingerprint.Digest(),
		Kind:        rec.Kind.Name,
		State:       rec.State().String(),
		CreatedAt:   rec.CreatedAt,
		LastUsedAt:  rec.LastUsed(),
	}
	if err := p.journal.UpsertWorker(context.Background(), row); err != nil {
		p.logger.Warn("journal upsert failed", logging.Error(err))
	}
}

func (p *Pool) journalState(rec *registry.Record) {
	p.journalSetState(rec.ID, rec.State())
}

func (p *Pool) journalSetState(id string, state registry.State) {
	if p.journal == nil {
		return
	}
	if err := p.journal.SetWorkerState(context.Background(), id, state.String()); err != nil {
		p.logger.Warn("journal state update failed", logging.Error(err))
	}
}
