package procctl

import (
	"context"

	"foundry/internal/fingerprint"
	"foundry/internal/protocol"
)

// Controller drives one worker process. Run blocks the calling goroutine
// until the action resolves or the process dies; this is the only blocking
// point the pool exposes to callers.
type Controller interface {
	// ID returns the worker identity the controller was spawned for.
	ID() string
	// PID returns the worker's OS process id.
	PID() int
	// Run sends one action and waits for its outcome.
	Run(ctx context.Context, req protocol.ExecuteRequest) Outcome
	// Stop requests a graceful shutdown, escalating to SIGKILL after the
	// stop grace period, and waits for the process to exit.
	Stop(ctx context.Context) error
	// Kill forcibly terminates the worker process group.
	Kill() error
	// Exited is closed once the worker process has been reaped.
	Exited() <-chan struct{}
	// ExitError reports how the process exited; valid after Exited closes.
	ExitError() error
	// Close releases the IPC channel and socket resources.
	Close() error
}

// Spawner launches worker processes for the pool.
type Spawner interface {
	Spawn(ctx context.Context, id string, req fingerprint.Requirements) (Controller, error)
}
