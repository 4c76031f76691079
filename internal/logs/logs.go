package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DaemonLogPath returns the daemon's primary log file under logDir.
func DaemonLogPath(logDir string) string {
	return filepath.Join(logDir, "foundry.log")
}

// WorkerLogPath returns the file capturing one worker's stdout and stderr.
// The spawner writes here; log readers resolve worker ids to the same
// location through this helper.
func WorkerLogPath(logDir, workerID string) string {
	return filepath.Join(logDir, "workers", workerID+".log")
}

// Request selects a slice of one log file. A negative Offset asks for the
// last MaxLines of the file; a non-negative Offset reads every complete
// line after it. Wait, when positive, blocks an empty read until new lines
// arrive or the wait elapses.
type Request struct {
	Path     string
	Offset   int64
	MaxLines int
	Wait     time.Duration
}

// Chunk is one read's worth of lines plus the cursor to resume from.
type Chunk struct {
	Lines []string
	Next  int64
}

// Read serves one Request. A missing file is not an error; it yields an
// empty chunk with the cursor reset to zero so a follower picks the file up
// once it appears.
func Read(ctx context.Context, req Request) (Chunk, error) {
	chunk := Chunk{Next: req.Offset}
	if req.Path == "" {
		return chunk, errors.New("log read requires a path")
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			chunk.Next = 0
			if req.Wait > 0 {
				return awaitLines(ctx, req.Path, 0, req.Wait)
			}
			return chunk, nil
		}
		return chunk, fmt.Errorf("stat log: %w", err)
	}
	if info.IsDir() {
		return chunk, fmt.Errorf("log path %q is a directory", req.Path)
	}

	var lines []string
	var next int64
	if req.Offset < 0 {
		lines, next, err = tailEnd(req.Path, req.MaxLines)
	} else {
		lines, next, err = readAfter(req.Path, req.Offset)
	}
	if err != nil {
		return chunk, err
	}

	chunk.Lines = lines
	chunk.Next = next
	if len(lines) == 0 && req.Wait > 0 {
		return awaitLines(ctx, req.Path, next, req.Wait)
	}
	return chunk, nil
}

// scanBlock is the granularity of the backward scan in tailEnd.
const scanBlock = 32 * 1024

// tailEnd returns up to max trailing lines by reading blocks backwards
// from the end of the file until enough line breaks have been seen, so the
// cost tracks the requested count rather than the file size.
func tailEnd(path string, max int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log: %w", err)
	}
	size := info.Size()
	if max <= 0 {
		return nil, size, nil
	}

	var tail []byte
	pos := size
	for pos > 0 && bytes.Count(tail, []byte{'\n'}) <= max {
		n := int64(scanBlock)
		if pos < n {
			n = pos
		}
		pos -= n
		block := make([]byte, n)
		if _, err := file.ReadAt(block, pos); err != nil {
			return nil, 0, fmt.Errorf("read log: %w", err)
		}
		tail = append(block, tail...)
	}

	text := strings.TrimSuffix(string(tail), "\n")
	if text == "" {
		return nil, size, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return lines, size, nil
}

// readAfter returns every complete line past offset. An offset beyond the
// current size, as after truncation or rotation, resets to the end rather
// than replaying the whole file.
func readAfter(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log: %w", err)
	}
	size := info.Size()
	if offset > size {
		offset = size
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan log: %w", err)
	}
	return lines, size, nil
}

// awaitLines polls for growth past offset until new lines arrive, the wait
// elapses, or the context ends. The file is only opened once its size
// changes.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (Chunk, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	chunk := Chunk{Next: offset}
	for {
		if info, err := os.Stat(path); err == nil && !info.IsDir() && info.Size() != offset {
			lines, next, err := readAfter(path, offset)
			if err != nil {
				return chunk, err
			}
			offset = next
			chunk.Next = next
			if len(lines) > 0 {
				chunk.Lines = lines
				return chunk, nil
			}
		}
		if !time.Now().Before(deadline) {
			return chunk, nil
		}
		select {
		case <-ctx.Done():
			return chunk, ctx.Err()
		case <-ticker.C:
		}
	}
}
