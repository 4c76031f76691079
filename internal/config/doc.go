// Package config loads, normalizes, and validates foundry configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the daemon, CLI, and worker binary need: runtime and log directories, the
// journal database path, worker spawn and stop timeouts, the watchdog poll
// interval, and logging output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
