// Package api defines the wire-facing DTOs shared by the IPC surface and
// the HTTP status endpoints.
//
// The types here are deliberately flat and JSON-tagged so both transports
// serve the same shapes. Conversions from internal records live here rather
// than in the transport packages so the mapping stays in one place.
package api
