package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"log/slog"

	"foundry/internal/config"
	"foundry/internal/logging"
)

func TestNewFromConfigWritesToLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("startup probe")

	content, err := os.ReadFile(filepath.Join(cfg.LogDir, "foundry.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "startup probe") {
		t.Fatalf("log file missing message: %q", content)
	}
}

func TestJSONFormatEmitsStructuredRecords(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("worker event",
		logging.String(logging.FieldWorkerID, "w-1"),
		logging.Int(logging.FieldPID, 42))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, content)
	}
	if record["msg"] != "worker event" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record[logging.FieldWorkerID] != "w-1" {
		t.Fatalf("missing worker id field: %v", record)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "warn",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Warn("visible")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("debug message leaked at warn level: %q", content)
	}
	if !strings.Contains(string(content), "visible") {
		t.Fatalf("warn message missing: %q", content)
	}
}

func TestRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range cases {
		if got := logging.ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestContextFieldsFlowThroughLogger(t *testing.T) {
	ctx := logging.WithWorker(context.Background(), "w-9")
	ctx = logging.WithSession(ctx, "s-3")

	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(fields))
	}

	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WithContext(ctx, logger).Info("scoped")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "w-9") || !strings.Contains(string(content), "s-3") {
		t.Fatalf("context fields missing from output: %q", content)
	}
}
