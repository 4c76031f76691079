// Package procctl owns worker OS processes end to end.
//
// A Spawner launches the worker binary with a command line derived from the
// requirement fingerprint, waits for the worker to dial back on a per-worker
// Unix socket, and returns a Controller. The Controller sends exactly one
// action at a time over JSON-RPC and reports a tagged Outcome: success,
// user-level failure inside a healthy worker, or abnormal process
// termination. No other component touches the OS process directly.
//
// Spawner is an interface so the pool can be exercised with in-process
// fakes; ExecSpawner is the production implementation.
package procctl
