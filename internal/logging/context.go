package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType tags lifecycle events (worker_spawned, worker_stopped, ...).
	FieldEventType = "event_type"
	// FieldWorkerID is the standardized structured logging key for worker identities.
	FieldWorkerID = "worker_id"
	// FieldSessionID is the standardized structured logging key for build session identifiers.
	FieldSessionID = "session_id"
	// FieldFingerprint carries the short requirement fingerprint digest.
	FieldFingerprint = "fingerprint"
	// FieldKind carries the daemon kind name.
	FieldKind = "kind"
	// FieldPID carries an OS process identifier.
	FieldPID = "pid"
)

type contextKey int

const (
	workerIDKey contextKey = iota
	sessionIDKey
)

// WithWorker stores the worker identity on the context for downstream log calls.
func WithWorker(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, workerIDKey, workerID)
}

// WithSession stores the build session identity on the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(workerIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldWorkerID, id))
	}
	if id, ok := ctx.Value(sessionIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
