// Package worker implements the runtime that lives inside each spawned
// worker process.
//
// On startup the runtime dials the controller's per-worker socket, serves
// the action protocol on that connection, and executes one action at a
// time through a pluggable Runner. A parent-liveness watchdog polls the
// spawning process and terminates the worker within a bounded interval if
// the parent dies hard; the explicit stop protocol cannot help in that
// case because there is no parent left to drive it.
package worker
