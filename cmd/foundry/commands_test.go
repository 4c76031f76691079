package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"foundry/internal/api"
)

func TestFormatStateCounts(t *testing.T) {
	got := formatStateCounts(map[string]int{"idle": 2, "busy": 1})
	if got != "1 busy, 2 idle" {
		t.Fatalf("formatStateCounts = %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID = %q", got)
	}
}

func TestFormatAge(t *testing.T) {
	if got := formatAge(time.Time{}); got != "-" {
		t.Fatalf("zero time formatted as %q", got)
	}
	if got := formatAge(time.Now().Add(-2 * time.Second)); !strings.HasSuffix(got, " ago") {
		t.Fatalf("formatAge = %q", got)
	}
}

func TestRenderWorkerTable(t *testing.T) {
	out := renderWorkerTable([]api.WorkerInfo{{
		ID:          "worker-1234567890",
		PID:         4321,
		State:       "idle",
		Kind:        "compile",
		Fingerprint: "deadbeef",
		LogLevel:    "info",
	}})
	for _, want := range []string{"worker-1", "4321", "idle", "compile", "deadbeef"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out.String(), "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", out.String())
	}

	cmd = newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("second init without --overwrite must fail")
	}
}
