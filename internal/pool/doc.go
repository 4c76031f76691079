// Package pool is the worker daemon pool manager: it matches incoming work
// items against idle workers by requirement fingerprint, spawns new workers
// on a miss, and runs the eviction policy.
//
// The pool is a passively queried shared resource, not a scheduler: build
// execution goroutines call Allocate or Execute concurrently and block only
// inside the process controller while their action runs. Allocation and
// eviction race over the same per-record compare-and-set transitions, so an
// idle worker is never awarded twice and eviction never tears a worker out
// from under an in-flight allocation.
//
// Eviction triggers are the explicit stop command, log-level drift at
// session start, and session-scoped daemon kinds at session end. Crashed
// workers leave the pool permanently; the next equivalent request spawns a
// fresh process, and unrelated fingerprints are unaffected.
package pool
