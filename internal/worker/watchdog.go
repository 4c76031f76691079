package worker

import (
	"context"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Watchdog detects hard death of the spawning process. It polls rather than
// waiting on the stop protocol because a dead parent cannot drive any
// protocol. The poll interval bounds how long an orphaned worker can
// outlive its coordinator.
type Watchdog struct {
	parentPID int
	interval  time.Duration
	probe     func(pid int) bool
	onDeath   func()
}

// WatchdogOption customizes watchdog construction.
type WatchdogOption func(*Watchdog)

// WithProbe replaces the liveness probe, primarily for tests.
func WithProbe(probe func(pid int) bool) WatchdogOption {
	return func(w *Watchdog) {
		if probe != nil {
			w.probe = probe
		}
	}
}

// NewWatchdog builds a watchdog for the given parent pid. onDeath runs once
// when the parent is observed dead.
func NewWatchdog(parentPID int, interval time.Duration, onDeath func(), opts ...WatchdogOption) *Watchdog {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	w := &Watchdog{
		parentPID: parentPID,
		interval:  interval,
		probe:     parentAlive,
		onDeath:   onDeath,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context ends or the parent dies. It returns after
// invoking onDeath so callers can decide how to terminate.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.probe(w.parentPID) {
				continue
			}
			if w.onDeath != nil {
				w.onDeath()
			}
			return
		}
	}
}

// parentAlive reports whether the process that spawned us still exists.
// Reparenting (Getppid no longer matching) catches the common case on
// Linux; the signal-0 probe covers platforms that reparent lazily.
func parentAlive(pid int) bool {
	if os.Getppid() != pid {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
