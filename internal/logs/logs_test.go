package logs_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"foundry/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestReadTailReturnsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foundry.log")
	writeLog(t, path, "a\nb\nc\n")

	chunk, err := logs.Read(context.Background(), logs.Request{Path: path, Offset: -1, MaxLines: 2})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "b" || chunk.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", chunk.Lines)
	}
	if chunk.Next != int64(len("a\nb\nc\n")) {
		t.Fatalf("cursor = %d, want end of file", chunk.Next)
	}
}

func TestReadTailOnLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foundry.log")
	var b strings.Builder
	for i := 0; i < 9000; i++ {
		fmt.Fprintf(&b, "line-%04d\n", i)
	}
	writeLog(t, path, b.String())

	chunk, err := logs.Read(context.Background(), logs.Request{Path: path, Offset: -1, MaxLines: 3})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"line-8997", "line-8998", "line-8999"}
	if len(chunk.Lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(chunk.Lines), len(want))
	}
	for i, line := range want {
		if chunk.Lines[i] != line {
			t.Fatalf("line %d = %q, want %q", i, chunk.Lines[i], line)
		}
	}
}

func TestReadResumesFromCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foundry.log")
	writeLog(t, path, "first\n")

	ctx := context.Background()
	chunk, err := logs.Read(ctx, logs.Request{Path: path, Offset: -1, MaxLines: 10})
	if err != nil {
		t.Fatalf("initial Read: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("second\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	next, err := logs.Read(ctx, logs.Request{Path: path, Offset: chunk.Next})
	if err != nil {
		t.Fatalf("resumed Read: %v", err)
	}
	if len(next.Lines) != 1 || next.Lines[0] != "second" {
		t.Fatalf("unexpected resumed lines: %#v", next.Lines)
	}
}

func TestReadMissingFileResetsCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foundry.log")

	chunk, err := logs.Read(context.Background(), logs.Request{Path: path, Offset: 42})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Next != 0 {
		t.Fatalf("missing file chunk = %#v, want empty with zero cursor", chunk)
	}
}

func TestReadWaitsForAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foundry.log")
	writeLog(t, path, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	chunk, err := logs.Read(ctx, logs.Request{Path: path, Offset: -1, MaxLines: 1})
	if err != nil {
		t.Fatalf("initial Read: %v", err)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Read(ctx, logs.Request{Path: path, Offset: offset, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("waiting Read: %v", err)
			return
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected waited lines: %#v", res.Lines)
		}
	}(chunk.Next)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("waiting Read did not return")
	}
}

func TestPathHelpers(t *testing.T) {
	dir := t.TempDir()
	if got, want := logs.DaemonLogPath(dir), filepath.Join(dir, "foundry.log"); got != want {
		t.Fatalf("DaemonLogPath = %q, want %q", got, want)
	}
	if got, want := logs.WorkerLogPath(dir, "w-1"), filepath.Join(dir, "workers", "w-1.log"); got != want {
		t.Fatalf("WorkerLogPath = %q, want %q", got, want)
	}
}
