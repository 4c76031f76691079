// Package journal persists worker lifecycle history in SQLite.
//
// The pool writes an event row for every spawn, stop, eviction, and crash,
// and mirrors the last-known shape of each worker record. The journal is an
// audit surface: the CLI reads it for `foundry history`, and it survives
// daemon restarts so crashed-worker investigations have something to go on.
// The in-memory registry, not the journal, remains the allocation source of
// truth.
package journal
