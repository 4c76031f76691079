package ipc

import "foundry/internal/api"

// WorkerInfo mirrors the HTTP API worker DTO for IPC callers.
type WorkerInfo = api.WorkerInfo

// Event mirrors the HTTP API journal event DTO.
type Event = api.Event

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and pool status.
type StatusResponse struct {
	Status api.PoolStatus `json:"status"`
}

// DaemonsRequest lists tracked worker daemons.
type DaemonsRequest struct{}

// DaemonsResponse contains one entry per tracked worker.
type DaemonsResponse struct {
	Workers []WorkerInfo `json:"workers"`
}

// StopDaemonsRequest stops every tracked worker daemon.
type StopDaemonsRequest struct{}

// StopDaemonsResponse reports how many workers were stopped.
type StopDaemonsResponse struct {
	Stopped int `json:"stopped"`
}

// SubmitRequest runs one action on a matching worker daemon.
type SubmitRequest struct {
	SessionID string   `json:"session_id,omitempty"`
	Classpath []string `json:"classpath"`
	VMArgs    []string `json:"vm_args,omitempty"`
	LogLevel  string   `json:"log_level,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	ActionID  string   `json:"action_id,omitempty"`
	Payload   []byte   `json:"payload,omitempty"`
}

// SubmitResponse carries the action outcome.
type SubmitResponse struct {
	Result api.ActionResult `json:"result"`
}

// SessionStartRequest opens a build session.
type SessionStartRequest struct {
	LogLevel string `json:"log_level,omitempty"`
}

// SessionStartResponse returns the new session id.
type SessionStartResponse struct {
	SessionID string `json:"session_id"`
}

// SessionEndRequest closes a build session.
type SessionEndRequest struct {
	SessionID string `json:"session_id"`
}

// SessionEndResponse reports how many workers were stopped at session end.
type SessionEndResponse struct {
	Stopped int `json:"stopped"`
}

// HistoryRequest fetches recent journal events, newest first.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HistoryResponse contains journal events and the full worker history.
type HistoryResponse struct {
	Events  []Event      `json:"events"`
	Workers []WorkerInfo `json:"workers"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
// WorkerID selects one worker's captured output instead of the daemon log.
type LogTailRequest struct {
	WorkerID   string `json:"worker_id,omitempty"`
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges the shutdown request.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
