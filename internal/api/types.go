package api

import "time"

// WorkerInfo is the external view of one tracked worker daemon.
type WorkerInfo struct {
	ID          string    `json:"id"`
	PID         int       `json:"pid"`
	State       string    `json:"state"`
	Kind        string    `json:"kind"`
	Fingerprint string    `json:"fingerprint"`
	LogLevel    string    `json:"log_level"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// PoolStatus aggregates daemon and pool state for status surfaces.
type PoolStatus struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	SocketPath  string         `json:"socket_path"`
	JournalPath string         `json:"journal_path"`
	LockPath    string         `json:"lock_path"`
	Workers     []WorkerInfo   `json:"workers"`
	StateCounts map[string]int `json:"state_counts"`
	Sessions    int            `json:"sessions"`
}

// Event is one journaled worker lifecycle event.
type Event struct {
	ID       int64     `json:"id"`
	At       time.Time `json:"at"`
	WorkerID string    `json:"worker_id"`
	Name     string    `json:"name"`
	Detail   string    `json:"detail"`
}

// ActionResult carries the outcome of a submitted action back to callers.
type ActionResult struct {
	WorkerID       string `json:"worker_id"`
	PID            int    `json:"pid"`
	Outcome        string `json:"outcome"`
	Result         []byte `json:"result,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}
