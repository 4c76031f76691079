package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"foundry/internal/fingerprint"
)

// State is the lifecycle position of a tracked worker.
type State int

const (
	// Starting covers spawn through the readiness handshake.
	Starting State = iota
	// Idle workers are eligible for reuse.
	Idle
	// Busy workers own exactly one in-flight work item.
	Busy
	// Stopping workers have been told to shut down.
	Stopping
	// Stopped workers exited through the stop protocol.
	Stopped
	// Crashed workers exited abnormally and are never reused.
	Crashed
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Crashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Record tracks one worker process. State, last-used time, and the
// retire-on-release flag are guarded by the record's own mutex so
// transitions stay atomic per record rather than per pool.
type Record struct {
	ID          string
	PID         int
	Fingerprint fingerprint.Fingerprint
	Kind        fingerprint.Kind
	CreatedAt   time.Time

	mu              sync.Mutex
	state           State
	lastUsed        time.Time
	retireOnRelease bool
	sessionID       string
}

// NewRecord creates a Starting record for a freshly spawned worker. An
// empty id gets a generated one; the pool passes the id it derived the
// worker's socket path from.
func NewRecord(id string, pid int, fp fingerprint.Fingerprint) *Record {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Record{
		ID:          id,
		PID:         pid,
		Fingerprint: fp,
		Kind:        fp.Kind(),
		CreatedAt:   now,
		state:       Starting,
		lastUsed:    now,
	}
}

// State returns the current lifecycle state.
func (r *Record) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastUsed returns the time of the most recent release to Idle.
func (r *Record) LastUsed() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUsed
}

// Transition atomically moves the record from one state to another. It
// reports false without side effects when the record is no longer in the
// expected state, which is how allocation and eviction lose races to each
// other cleanly.
func (r *Record) Transition(from, to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return false
	}
	r.state = to
	if to == Idle {
		r.lastUsed = time.Now().UTC()
	}
	return true
}

// MarkCrashed forces the record into Crashed regardless of its current
// state, returning the state it was in. Used when the process exit monitor
// observes abnormal termination.
func (r *Record) MarkCrashed() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.state
	r.state = Crashed
	return prev
}

// BindSession records which session last acquired the worker. A later
// acquisition by another session re-binds it; end-of-session eviction only
// touches workers still bound to the ending session.
func (r *Record) BindSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
}

// SessionID returns the session the worker was last acquired under, or the
// empty string for workers only used outside any session.
func (r *Record) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// RequestRetire flags a busy record so its next release stops the worker
// instead of returning it to Idle.
func (r *Record) RequestRetire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retireOnRelease = true
}

// RetireRequested reports and clears the retire-on-release flag.
func (r *Record) RetireRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	requested := r.retireOnRelease
	r.retireOnRelease = false
	return requested
}
