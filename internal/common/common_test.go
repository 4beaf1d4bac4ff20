package common

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestWriteFileAtomicCommits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "a,b\n1,2\n")
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestWriteFileAtomicFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	boom := errors.New("boom")
	err := WriteFileAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("error %q does not name the file", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Fatalf("previous content replaced: %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestSha256OfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.txt")
	if err := WriteBytesAtomic(path, []byte("abc")); err != nil {
		t.Fatalf("WriteBytesAtomic: %v", err)
	}
	sum, size, err := Sha256OfFile(path)
	if err != nil {
		t.Fatalf("Sha256OfFile: %v", err)
	}
	if size != 3 {
		t.Fatalf("size = %d, want 3", size)
	}
	if sum != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("sum = %s", sum)
	}
}

func TestRunLogAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "batch.jsonl")
	rl := NewRunLog(path)
	if rl.Path() != path {
		t.Fatalf("Path = %s, want %s", rl.Path(), path)
	}
	var none *RunLog
	if none.Path() != "" || none.Append(RunEntry{Input: "a.trc"}) == nil {
		t.Fatalf("nil run log should have no path and refuse appends")
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rl.Append(RunEntry{Input: "a.trc", Frames: 10}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()
	if err := rl.Append(RunEntry{Input: "b.trc", Error: "open b.trc: no such file"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := rl.Append(RunEntry{}); err == nil {
		t.Fatalf("expected error for entry without input")
	}
	entries, err := ReadRunLog(path)
	if err != nil {
		t.Fatalf("ReadRunLog: %v", err)
	}
	if len(entries) != 9 {
		t.Fatalf("len(entries) = %d, want 9", len(entries))
	}
	last := entries[8]
	if !last.Failed() || last.Ts.IsZero() {
		t.Fatalf("unexpected last entry: %+v", last)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.AddTotalBytes(120)
	m.AddTotalBytes(80)
	m.AddTotalBytes(-5)
	m.Start()
	m.AddFrame(50)
	m.AddFrame(30)
	m.AddSkipped(20)
	m.AddDegraded(3)
	m.AddDegraded(-1)
	m.IncFiles()
	m.Stop()
	s := m.Snapshot()
	if s.Frames != 2 || s.Skipped != 1 || s.Degraded != 3 || s.Files != 1 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if s.Bytes != 100 || s.Completion() != 0.5 {
		t.Fatalf("Bytes = %d, Completion = %v", s.Bytes, s.Completion())
	}
	if !strings.Contains(formatProgressLine(s), "2 frames") {
		t.Fatalf("progress line = %q", formatProgressLine(s))
	}

	total := NewMetrics()
	total.Merge(s)
	total.Merge(s)
	if got := total.Snapshot(); got.Frames != 4 || got.Skipped != 2 || got.Degraded != 6 || got.Files != 2 || got.Bytes != 200 || got.TotalBytes != 0 {
		t.Fatalf("merged snapshot: %+v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{5 * 1024 * 1024, "5.00 MiB"},
	}
	for _, tc := range tests {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
