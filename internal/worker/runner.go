package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Runner executes one opaque action payload. A returned error is a
// user-level failure: it is reported to the caller but leaves the worker
// healthy and reusable.
type Runner interface {
	Run(ctx context.Context, payload []byte) ([]byte, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, payload []byte) ([]byte, error)

func (f RunnerFunc) Run(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

// ToolAction is the payload shape understood by ExecRunner: one tool
// invocation with optional working directory and environment additions.
type ToolAction struct {
	Argv []string          `json:"argv"`
	Dir  string            `json:"dir,omitempty"`
	Env  map[string]string `json:"env,omitempty"`
}

// ToolResult is the result shape produced by ExecRunner.
type ToolResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// ExecRunner runs tool invocations described by ToolAction payloads. It is
// the default runner wired by the foundry-worker binary.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, payload []byte) ([]byte, error) {
	var action ToolAction
	if err := json.Unmarshal(payload, &action); err != nil {
		return nil, fmt.Errorf("decode tool action: %w", err)
	}
	if len(action.Argv) == 0 {
		return nil, errors.New("tool action requires argv")
	}

	cmd := exec.CommandContext(ctx, action.Argv[0], action.Argv[1:]...)
	cmd.Dir = action.Dir
	if len(action.Env) > 0 {
		env := os.Environ()
		for key, value := range action.Env {
			env = append(env, key+"="+value)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("%s exited with code %d: %s",
				action.Argv[0], exitErr.ExitCode(), firstLine(stderr.String()))
		}
		return nil, fmt.Errorf("run %s: %w", action.Argv[0], runErr)
	}

	return json.Marshal(ToolResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	})
}

func firstLine(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			return text[:i]
		}
	}
	return text
}
