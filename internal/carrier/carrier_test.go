package carrier

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseIntegratesSpeed(t *testing.T) {
	doc := strings.Join([]string{
		"10:00:00, 5.0, 2.0",
		"",
		"10.00.02, 9.0, 4.0",
		"note without fields",
		"10:00:03, 12.5, 4.0",
	}, "\n")
	points, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
	if points[0].TimeMs != 36000000+ClockSkewMs {
		t.Fatalf("TimeMs = %d, want %d", points[0].TimeMs, 36000000+ClockSkewMs)
	}
	want := []float64{5, 6, 10}
	for i, p := range points {
		if p.PositionIntegration != want[i] {
			t.Errorf("point %d integration = %v, want %v", i, p.PositionIntegration, want[i])
		}
	}
	if got := points[1].TimeString(); got != "10:0:19:0" {
		t.Fatalf("TimeString = %s, want 10:0:19:0", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "time", doc: "10:xx:00, 1, 2"},
		{name: "short time", doc: "10:00, 1, 2"},
		{name: "position", doc: "10:00:00, far, 2"},
		{name: "speed", doc: "10:00:00, 1, fast"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.doc)); err == nil || !strings.Contains(err.Error(), "line 1") {
				t.Fatalf("Parse() = %v, want error on line 1", err)
			}
		})
	}
}

func TestLoadDoesNotRewriteInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carrier.txt")
	orig := []byte("10:00:00, 5.0, 2.0\n10:00:01, 6.0, 2.0\n")
	if err := os.WriteFile(path, orig, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	points, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(orig, after) {
		t.Fatalf("input rewritten: %q", after)
	}
}

func TestSaveCSV(t *testing.T) {
	points := []Point{
		{TimeMs: 36017000, Position: 5, Speed: 2, PositionIntegration: 5},
		{TimeMs: 36018000, Position: 6.5, Speed: 2.25, PositionIntegration: 2.125},
	}
	path := filepath.Join(t.TempDir(), "carrier.csv")
	if err := SaveCSV(path, points); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "Time,TimeString,Position,Speed,PositionIntegration\n" +
		"36017000,10:0:17:0,5.0,2.0,5.0\n" +
		"36018000,10:0:18:0,6.5,2.25,2.125\n"
	if string(data) != want {
		t.Fatalf("csv = %q, want %q", data, want)
	}
}

func TestWriteCSVRecords(t *testing.T) {
	points := []Point{
		{TimeMs: 36017000, Position: 5, Speed: 2, PositionIntegration: 5},
		{TimeMs: 36019000, Position: -1e-05, Speed: 0, PositionIntegration: 2},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, points); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := [][]string{
		Columns,
		{"36017000", "10:0:17:0", "5.0", "2.0", "5.0"},
		{"36019000", "10:0:19:0", "-1e-05", "0.0", "2.0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}
