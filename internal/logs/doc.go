// Package logs reads the daemon's log files for diagnostics. It serves the
// trailing lines of a file with cost bounded by the requested count, resumes
// from a byte cursor for follow-mode streaming, and can block a read until
// new lines appear.
//
// The package also owns the log file layout: the daemon log lives directly
// under the log directory and each worker's captured output lives under
// workers/<id>.log. The spawner and every log reader resolve paths through
// the same helpers so the layout cannot drift.
package logs
