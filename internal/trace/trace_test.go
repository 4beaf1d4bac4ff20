package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/common"
)

func frameLine(seq int, offset float64, id uint32, dlc int, payload string) string {
	return fmt.Sprintf("%6d) %11.1f  1  Rx         %04X -  %d    %s", seq, offset, id, dlc, payload)
}

func header() []string {
	lines := []string{";$FILEVERSION=1.1", ";$STARTTIME=45292.4131"}
	for len(lines) < DefaultHeaderLines {
		lines = append(lines, ";")
	}
	return lines
}

func TestParseLine(t *testing.T) {
	f, err := ParseLine(strings.TrimSpace(frameLine(12, 30.5, 0x601, 8, "00 72 3F 1C 70 82 E5 04")))
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	want := can.Frame{
		Seq:     12,
		Offset:  30.5,
		ID:      0x601,
		DLC:     8,
		Payload: []byte{0x00, 0x72, 0x3F, 0x1C, 0x70, 0x82, 0xE5, 0x04},
		TimeMs:  30.5,
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLineShortPayload(t *testing.T) {
	f, err := ParseLine("7) 1.0 1 Rx 0601 - 8 01 02")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if f.DLC != 8 || len(f.Payload) != 2 {
		t.Fatalf("DLC = %d, len(payload) = %d, want 8 and 2", f.DLC, len(f.Payload))
	}
}

func TestParseLineErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "too few tokens", line: "1) 2.0 1 Rx 0601"},
		{name: "message number", line: "x) 2.0 1 Rx 0601 - 1 00"},
		{name: "offset", line: "1) abc 1 Rx 0601 - 1 00"},
		{name: "id", line: "1) 2.0 1 Rx 06G1 - 1 00"},
		{name: "length", line: "1) 2.0 1 Rx 0601 - 9 00"},
		{name: "payload", line: "1) 2.0 1 Rx 0601 - 2 00 ZZ"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseLine(tc.line); !errors.Is(err, ErrMalformedLine) {
				t.Fatalf("ParseLine(%q) = %v, want ErrMalformedLine", tc.line, err)
			}
		})
	}
}

func TestReadSkipsNonFrameLines(t *testing.T) {
	common.SetLogOutput(io.Discard)
	defer common.SetLogOutput(os.Stderr)

	lines := header()
	// a frame inside the header is not read
	lines[5] = frameLine(99, 0.1, 0x601, 8, "00 00 00 00 00 00 00 00")
	lines = append(lines,
		frameLine(1, 10.0, 0x603, 8, "00 00 00 00 00 00 D2 04"),
		"",
		"; comment",
		"short line",
		"     2)        11.0  1  Rx         0604 -  8    00 00 00 00 00 00 00 QQ",
		frameLine(3, 12.0, 0x604, 2, "10 00"),
	)
	m := common.NewMetrics()
	frames, err := Read(strings.NewReader(strings.Join(lines, "\n")+"\n"), Options{HeaderLines: DefaultHeaderLines, Metrics: m})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if frames[0].Seq != 1 || frames[1].Seq != 3 {
		t.Fatalf("seqs = %d,%d, want 1,3", frames[0].Seq, frames[1].Seq)
	}
	snap := m.Snapshot()
	if snap.Frames != 2 {
		t.Fatalf("Frames = %d, want 2", snap.Frames)
	}
	if want := int64(DefaultHeaderLines + 4); snap.Skipped != want {
		t.Fatalf("Skipped = %d, want %d", snap.Skipped, want)
	}
}

func TestReaderReportsLineNumbers(t *testing.T) {
	doc := strings.Join([]string{";", frameLine(1, 1, 0x601, 1, "00"), frameLine(2, 2, 0x601, 1, "00")}, "\n")
	r := NewReader(strings.NewReader(doc), Options{})
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if r.Line() != 2 {
		t.Fatalf("Line() = %d, want 2", r.Line())
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next at end = %v, want io.EOF", err)
	}
}

func TestReaderSkipsOverlongLine(t *testing.T) {
	var logBuf strings.Builder
	common.SetLogOutput(&logBuf)
	defer common.SetLogOutput(os.Stderr)

	long := frameLine(2, 2, 0x601, 8, "00 00 00 00 00 00 00 00") + strings.Repeat(" 00", maxLineBytes)
	doc := strings.Join([]string{frameLine(1, 1, 0x601, 1, "00"), long, frameLine(3, 3, 0x603, 1, "00")}, "\r\n")
	m := common.NewMetrics()
	r := NewReader(strings.NewReader(doc), Options{Name: "big.trc", Metrics: m})
	var seqs []uint64
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		seqs = append(seqs, f.Seq)
	}
	if diff := cmp.Diff([]uint64{1, 3}, seqs); diff != "" {
		t.Fatalf("seqs mismatch (-want +got):\n%s", diff)
	}
	if r.Line() != 3 {
		t.Fatalf("Line() = %d, want 3", r.Line())
	}
	if got := m.Snapshot().Skipped; got != 1 {
		t.Fatalf("Skipped = %d, want 1", got)
	}
	if !strings.Contains(logBuf.String(), "big.trc line 2") {
		t.Fatalf("log = %q, want line 2 reported", logBuf.String())
	}
}

func TestReconstructTime(t *testing.T) {
	// 10:15:30.500
	ref := []byte{0, 0, 0, 0, 50, 30, 15, 10}
	const refMs = 36930500.0
	// 10:15:31.000
	ref2 := []byte{0, 0, 0, 0, 0, 31, 15, 10}
	frames := []can.Frame{
		{Seq: 1, Offset: 10, ID: can.IDPosition},
		{Seq: 2, Offset: 20, ID: can.IDSpeed},
		{Seq: 3, Offset: 30, ID: can.IDTime, Payload: ref},
		{Seq: 4, Offset: 45, ID: can.IDPosition},
		{Seq: 5, Offset: 50, ID: can.IDTime, Payload: ref2},
		{Seq: 6, Offset: 60.5, ID: can.IDSpeed},
	}
	ReconstructTime(frames)
	want := []float64{refMs - 20, refMs - 10, refMs, refMs + 15, 36931000, 36931010.5}
	for i, f := range frames {
		if f.TimeMs != want[i] {
			t.Errorf("frame %d TimeMs = %v, want %v", f.Seq, f.TimeMs, want[i])
		}
	}
	if got := frames[2].TimeString(); got != "10:15:30:500" {
		t.Fatalf("TimeString = %s, want 10:15:30:500", got)
	}
}

func TestReconstructTimeWithoutReference(t *testing.T) {
	frames := []can.Frame{{Offset: 1.5, TimeMs: 99}, {Offset: 7.25}}
	ReconstructTime(frames)
	for _, f := range frames {
		if f.TimeMs != f.Offset {
			t.Fatalf("TimeMs = %v, want offset %v", f.TimeMs, f.Offset)
		}
	}
}

func TestTimeOfDayShortPayload(t *testing.T) {
	if got := TimeOfDay([]byte{1, 2, 3, 4, 5, 6, 7}); got != 0 {
		t.Fatalf("TimeOfDay(7 bytes) = %v, want 0", got)
	}
}

func TestApplyBrakeLightTime(t *testing.T) {
	frames := []can.Frame{
		{ID: can.IDBrakeLight, Payload: []byte{9, 45, 0x10, 0x27}, TimeMs: 1},
		{ID: can.IDBrakeLight, Payload: []byte{9, 45, 0x10}, TimeMs: 2},
		{ID: can.IDPosition, Payload: []byte{9, 45, 0x10, 0x27}, TimeMs: 3},
	}
	if n := ApplyBrakeLightTime(frames); n != 1 {
		t.Fatalf("ApplyBrakeLightTime = %d, want 1", n)
	}
	if want := 9*3600000.0 + 45*60000 + 10000; frames[0].TimeMs != want {
		t.Fatalf("TimeMs = %v, want %v", frames[0].TimeMs, want)
	}
	if frames[1].TimeMs != 2 || frames[2].TimeMs != 3 {
		t.Fatalf("untouched frames changed: %v %v", frames[1].TimeMs, frames[2].TimeMs)
	}
}

func TestSortByTimeIsStable(t *testing.T) {
	frames := []can.Frame{
		{Seq: 1, TimeMs: 30},
		{Seq: 2, TimeMs: 10},
		{Seq: 3, TimeMs: 30},
		{Seq: 4, TimeMs: 20},
	}
	SortByTime(frames)
	var got []uint64
	for _, f := range frames {
		got = append(got, f.Seq)
	}
	if diff := cmp.Diff([]uint64{2, 4, 1, 3}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestReadFile(t *testing.T) {
	lines := append(header(),
		frameLine(1, 5, 0x601, 8, "00 72 3F 1C 70 82 E5 04"),
		frameLine(2, 15, 0x600, 8, "00 00 00 00 00 00 00 01"),
	)
	path := filepath.Join(t.TempDir(), "run.trc")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\r\n")), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	frames, err := ReadFile(path, Options{HeaderLines: DefaultHeaderLines})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("len(frames) = %d, want 2", len(frames))
	}
	if frames[0].TimeMs != 3600000-10 {
		t.Fatalf("TimeMs = %v, want %v", frames[0].TimeMs, 3600000-10)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.trc"), Options{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
