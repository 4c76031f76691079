package pool

import "errors"

var (
	// ErrPoolClosed is returned by allocation attempts after Close.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrSpawn marks process launch failures. No record joins the registry
	// when spawning fails.
	ErrSpawn = errors.New("worker spawn failed")
	// ErrWorkerCrashed marks actions that failed because the worker process
	// died. The crash is isolated to that worker; the pool stays usable.
	ErrWorkerCrashed = errors.New("worker crashed")
)
