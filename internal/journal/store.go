package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"foundry/internal/config"
)

// Event names recorded by the pool.
const (
	EventSpawned         = "spawned"
	EventReused          = "reused"
	EventStopped         = "stopped"
	EventCrashed         = "crashed"
	EventEvictedLogLevel = "evicted_log_level"
	EventEvictedSession  = "evicted_session"
)

// Event is one worker lifecycle entry.
type Event struct {
	ID       int64
	At       time.Time
	WorkerID string
	Name     string
	Detail   string
}

// WorkerRow mirrors a registry record for inspection after the fact.
type WorkerRow struct {
	ID          string
	PID         int
	Fingerprint string
	Kind        string
	State       string
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	path := cfg.JournalPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applySchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			worker_id TEXT NOT NULL,
			name TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_at ON events(at)`,
		`CREATE TABLE IF NOT EXISTS workers (
			id TEXT PRIMARY KEY,
			pid INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			kind TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_used_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// RecordEvent appends one lifecycle event.
func (s *Store) RecordEvent(ctx context.Context, workerID, name, detail string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO events (at, worker_id, name, detail) VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		workerID,
		name,
		detail,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// UpsertWorker stores the latest shape of a worker record.
func (s *Store) UpsertWorker(ctx context.Context, row WorkerRow) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO workers (id, pid, fingerprint, kind, state, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			pid = excluded.pid,
			state = excluded.state,
			last_used_at = excluded.last_used_at`,
		row.ID,
		row.PID,
		row.Fingerprint,
		row.Kind,
		row.State,
		row.CreatedAt.UTC().Format(time.RFC3339Nano),
		row.LastUsedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert worker %s: %w", row.ID, err)
	}
	return nil
}

// SetWorkerState updates only the persisted state of a worker row.
func (s *Store) SetWorkerState(ctx context.Context, workerID, state string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE workers SET state = ?, last_used_at = ? WHERE id = ?`,
		state,
		time.Now().UTC().Format(time.RFC3339Nano),
		workerID,
	)
	if err != nil {
		return fmt.Errorf("update worker state %s: %w", workerID, err)
	}
	return nil
}

// Workers returns every persisted worker row ordered by creation time.
func (s *Store) Workers(ctx context.Context) ([]WorkerRow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, pid, fingerprint, kind, state, created_at, last_used_at
		 FROM workers ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()

	var out []WorkerRow
	for rows.Next() {
		var row WorkerRow
		var created, lastUsed string
		if err := rows.Scan(&row.ID, &row.PID, &row.Fingerprint, &row.Kind, &row.State, &created, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan worker row: %w", err)
		}
		row.CreatedAt = parseTimestamp(created)
		row.LastUsedAt = parseTimestamp(lastUsed)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Events returns the most recent lifecycle events, newest first.
func (s *Store) Events(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, at, worker_id, name, detail FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var at string
		if err := rows.Scan(&ev.ID, &at, &ev.WorkerID, &ev.Name, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.At = parseTimestamp(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}
