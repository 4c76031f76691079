// Package registry tracks every worker the pool knows about and guards the
// state transitions allocation and eviction race over.
//
// Each record carries its own lock, so an allocation claiming one idle
// worker never contends with unrelated pool traffic. All state changes go
// through compare-and-set transitions; there is no way to move a record
// between states without going through the guard.
package registry
