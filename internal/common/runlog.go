package common

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RunEntry records the outcome of converting one trace.
type RunEntry struct {
	Input    string    `json:"input"`
	Outputs  []string  `json:"outputs,omitempty"`
	Frames   int64     `json:"frames"`
	Skipped  int64     `json:"skipped"`
	Degraded int64     `json:"degraded"`
	Error    string    `json:"error,omitempty"`
	Ts       time.Time `json:"ts"`
}

// Failed reports whether the conversion aborted.
func (e RunEntry) Failed() bool {
	return strings.TrimSpace(e.Error) != ""
}

// RunLog provides append-only access to a JSONL run journal. It is safe for
// use by concurrent batch workers.
type RunLog struct {
	path string
	mu   sync.Mutex
}

func NewRunLog(path string) *RunLog {
	return &RunLog{path: path}
}

func (r *RunLog) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Append writes entry as one JSON line.
func (r *RunLog) Append(entry RunEntry) error {
	if r == nil {
		return errors.New("nil run log")
	}
	if entry.Input == "" {
		return errors.New("run entry missing input")
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	dir := filepath.Dir(r.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// ReadRunLog loads every entry from the supplied JSONL file.
func ReadRunLog(path string) ([]RunEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var entries []RunEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry RunEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode run entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
