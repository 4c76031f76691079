package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.RuntimeDir == "" {
		return errors.New("paths.runtime_dir is required")
	}
	if c.LogDir == "" {
		return errors.New("paths.log_dir is required")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected console or json)", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.LogLevel)
	}
	if c.SpawnTimeout <= 0 {
		return errors.New("pool.spawn_timeout must be positive")
	}
	if c.StopGrace <= 0 {
		return errors.New("pool.stop_grace must be positive")
	}
	if c.WatchdogInterval <= 0 {
		return errors.New("worker.watchdog_interval must be positive")
	}
	return nil
}
