package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizePool(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RuntimeDir, err = ExpandPath(c.Paths.RuntimeDir); err != nil {
		return fmt.Errorf("paths.runtime_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalPath) == "" {
		c.Paths.JournalPath = defaultJournalPath
	}
	if c.Paths.JournalPath, err = ExpandPath(c.Paths.JournalPath); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizePool() error {
	var err error
	if binary := strings.TrimSpace(c.Pool.WorkerBinary); binary != "" {
		if c.Pool.WorkerBinary, err = ExpandPath(binary); err != nil {
			return fmt.Errorf("pool.worker_binary: %w", err)
		}
	} else {
		c.Pool.WorkerBinary = ""
	}
	if c.Pool.SpawnTimeout <= 0 {
		c.Pool.SpawnTimeout = defaultSpawnTimeout
	}
	if c.Pool.StopGrace <= 0 {
		c.Pool.StopGrace = defaultStopGrace
	}
	kinds := make([]string, 0, len(c.Pool.SessionScopedKinds))
	for _, kind := range c.Pool.SessionScopedKinds {
		if kind = strings.ToLower(strings.TrimSpace(kind)); kind != "" {
			kinds = append(kinds, kind)
		}
	}
	c.Pool.SessionScopedKinds = kinds
	if c.Worker.WatchdogInterval <= 0 {
		c.Worker.WatchdogInterval = defaultWatchdogInterval
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.LogFormat = strings.ToLower(strings.TrimSpace(c.Logging.LogFormat))
	if c.Logging.LogFormat == "" {
		c.Logging.LogFormat = defaultLogFormat
	}
	c.Logging.LogLevel = strings.ToLower(strings.TrimSpace(c.Logging.LogLevel))
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = defaultLogLevel
	}
}

// ExpandPath resolves a leading ~ against the user's home directory and
// returns an absolute path. Empty input stays empty.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
