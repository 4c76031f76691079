package worker_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"foundry/internal/worker"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	payload, err := json.Marshal(worker.ToolAction{Argv: []string{"sh", "-c", "echo built"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	out, err := worker.ExecRunner{}.Run(context.Background(), payload)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var result worker.ToolResult
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "built" {
		t.Fatalf("stdout = %q, want built", result.Stdout)
	}
}

func TestExecRunnerReportsExitCode(t *testing.T) {
	payload, err := json.Marshal(worker.ToolAction{Argv: []string{"sh", "-c", "echo oops >&2; exit 3"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = worker.ExecRunner{}.Run(context.Background(), payload)
	if err == nil {
		t.Fatal("expected user-level failure for non-zero exit")
	}
	if !strings.Contains(err.Error(), "code 3") || !strings.Contains(err.Error(), "oops") {
		t.Fatalf("error missing exit detail: %v", err)
	}
}

func TestExecRunnerRejectsEmptyAction(t *testing.T) {
	if _, err := (worker.ExecRunner{}).Run(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected error for empty argv")
	}
	if _, err := (worker.ExecRunner{}).Run(context.Background(), []byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
