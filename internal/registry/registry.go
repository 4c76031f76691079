package registry

import (
	"sort"
	"sync"

	"foundry/internal/fingerprint"
)

// Registry is the single source of truth for tracked workers. The map is
// guarded by a read-write mutex; record state lives on the records
// themselves so lookups never serialize state transitions.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Add begins tracking a record.
func (r *Registry) Add(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
}

// Remove stops tracking the record with the given identity.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}

// Get returns the record with the given identity, if tracked.
func (r *Registry) Get(id string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Len returns the number of tracked records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Snapshot returns all tracked records ordered by creation time.
func (r *Registry) Snapshot() []*Record {
	r.mu.RLock()
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Idle returns the records currently in the Idle state. The result is a
// point-in-time view; callers claiming a record must still win its
// transition.
func (r *Registry) Idle() []*Record {
	idle := make([]*Record, 0)
	for _, rec := range r.Snapshot() {
		if rec.State() == Idle {
			idle = append(idle, rec)
		}
	}
	return idle
}

// AcquireIdle claims an idle record whose fingerprint equals fp, moving it
// Idle to Busy in the same step. It returns nil when no matching idle
// record exists or every candidate was claimed first by a concurrent
// caller.
func (r *Registry) AcquireIdle(fp fingerprint.Fingerprint) *Record {
	for _, rec := range r.Snapshot() {
		if !rec.Fingerprint.Equal(fp) {
			continue
		}
		if rec.Transition(Idle, Busy) {
			return rec
		}
	}
	return nil
}
