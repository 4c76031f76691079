package testsupport

import (
	"path/filepath"
	"testing"

	"foundry/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.RuntimeDir = filepath.Join(base, "runtime")
	cfgVal.LogDir = filepath.Join(base, "logs")
	cfgVal.JournalPath = filepath.Join(base, "journal", "foundry.db")
	cfgVal.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	return builder.cfg
}

// WithWorkerBinary overrides the worker binary path on the test config.
func WithWorkerBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.WorkerBinary = path
	}
}

// WithStopGrace overrides the stop grace period, in seconds.
func WithStopGrace(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.StopGrace = seconds
	}
}

// WithSessionScopedKinds replaces the set of worker kinds torn down at
// session end.
func WithSessionScopedKinds(kinds ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.SessionScopedKinds = kinds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.RuntimeDir)
}
