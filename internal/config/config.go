package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, database, and bind address configuration.
type Paths struct {
	RuntimeDir  string `toml:"runtime_dir"`
	LogDir      string `toml:"log_dir"`
	JournalPath string `toml:"journal_path"`
	APIBind     string `toml:"api_bind"`
}

// Pool contains worker pool behavior settings.
type Pool struct {
	WorkerBinary       string   `toml:"worker_binary"`
	SpawnTimeout       int      `toml:"spawn_timeout"`
	StopGrace          int      `toml:"stop_grace"`
	SessionScopedKinds []string `toml:"session_scoped_kinds"`
}

// Worker contains settings passed through to spawned worker processes.
type Worker struct {
	WatchdogInterval int `toml:"watchdog_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	LogFormat string `toml:"format"`
	LogLevel  string `toml:"level"`
}

// Config encapsulates all configuration values for foundry.
//
// Configuration sections by subsystem:
//   - Paths: runtime/log directories, journal database, API bind address
//   - Pool: worker binary, spawn/stop timing, session-scoped kinds
//   - Worker: parent-liveness watchdog interval
//   - Logging: log format and level
type Config struct {
	Paths   `toml:"paths"`
	Pool    `toml:"pool"`
	Worker  `toml:"worker"`
	Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/foundry/config.toml")
}

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		Paths: Paths{
			RuntimeDir:  defaultRuntimeDir,
			LogDir:      defaultLogDir,
			JournalPath: defaultJournalPath,
			APIBind:     defaultAPIBind,
		},
		Pool: Pool{
			SpawnTimeout:       defaultSpawnTimeout,
			StopGrace:          defaultStopGrace,
			SessionScopedKinds: []string{"compile"},
		},
		Worker: Worker{
			WatchdogInterval: defaultWatchdogInterval,
		},
		Logging: Logging{
			LogFormat: defaultLogFormat,
			LogLevel:  defaultLogLevel,
		},
	}
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path, the third reports whether a file existed at it.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config %s: %w", resolvedPath, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// clobber an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the runtime and log directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.RuntimeDir, c.LogDir, filepath.Dir(c.JournalPath)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the control socket location inside the runtime directory.
func (c *Config) SocketPath() string {
	return filepath.Join(c.RuntimeDir, "foundryd.sock")
}

// WorkerSocketDir returns the directory holding per-worker dial-back sockets.
func (c *Config) WorkerSocketDir() string {
	return filepath.Join(c.RuntimeDir, "workers")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.RuntimeDir, "foundryd.lock")
}

// SessionScoped reports whether the named daemon kind is evicted at session end.
func (c *Config) SessionScoped(kind string) bool {
	for _, name := range c.SessionScopedKinds {
		if strings.EqualFold(strings.TrimSpace(name), kind) {
			return true
		}
	}
	return false
}

func resolveConfigPath(path string) (string, bool, error) {
	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		def, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidate = def
	}

	expanded, err := ExpandPath(candidate)
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return "", false, fmt.Errorf("config file not found: %s", expanded)
			}
			return expanded, false, nil
		}
		return "", false, err
	}
	return expanded, true, nil
}
