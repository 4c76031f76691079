// Package protocol defines the JSON-RPC contract between the process
// controller and a worker.
//
// The worker dials the controller's per-worker socket and serves this
// service on the connection. One Execute call is in flight per Busy period;
// everything inside Payload and Result is opaque to the pool.
package protocol

// Version is bumped when the wire contract changes incompatibly. The
// controller rejects workers reporting a different version during the
// readiness handshake.
const Version = 1

// Service and method names registered on the worker's RPC server.
const (
	ServiceName    = "Worker"
	MethodHello    = "Worker.Hello"
	MethodExecute  = "Worker.Execute"
	MethodShutdown = "Worker.Shutdown"
)

// HelloRequest opens the readiness handshake.
type HelloRequest struct{}

// HelloResponse signals the worker is ready to accept actions.
type HelloResponse struct {
	PID     int `json:"pid"`
	Version int `json:"version"`
}

// ExecuteRequest carries one action payload.
type ExecuteRequest struct {
	ActionID string `json:"action_id"`
	Payload  []byte `json:"payload"`
}

// ExecuteResponse carries the action result. Failed distinguishes a
// user-level action failure inside a healthy worker from transport or
// process death, which surface as RPC errors instead.
type ExecuteResponse struct {
	Result       []byte `json:"result"`
	Failed       bool   `json:"failed"`
	ErrorMessage string `json:"error_message"`
}

// ShutdownRequest asks the worker to exit after the current action, if any.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
