// Package logging builds the slog loggers used across the foundry daemon,
// CLI, and worker binary.
//
// It provides console and JSON handlers behind a single Options type, typed
// attribute helpers so call sites stay terse, and context carriage for the
// worker and session identifiers that should follow a request through the
// pool. Audit lines the pool emits (worker started, stopped, evicted) flow
// through loggers constructed here.
//
// Construct loggers through New or NewFromConfig so every process renders
// levels, timestamps, and error fields the same way.
package logging
