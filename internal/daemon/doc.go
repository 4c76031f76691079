// Package daemon coordinates the long-running foundryd process.
//
// It wires configuration, the journal, the worker pool, and the metrics
// collector into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon owns build sessions, submits actions to
// the pool, and serves the optional HTTP status surface.
//
// Keep orchestration logic here: allocation and eviction mechanics live in
// the pool package while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
