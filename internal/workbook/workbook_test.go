package workbook

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/group"
	"example.com/trcgate/internal/record"
)

func sampleTable() *record.Table {
	frames := []can.Frame{
		{Seq: 1, ID: can.IDSpeed, DLC: 8, Payload: []byte{0, 0, 0, 0, 0, 0, 0xF4, 0x01}, TimeMs: 5},
		{Seq: 2, ID: can.IDSpeed, DLC: 2, Payload: []byte{0, 0}, TimeMs: 6},
	}
	tbl := can.DefaultTable()
	return record.FromOutputRows(can.Assemble(frames, tbl), tbl.Columns())
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Speed2D", "Speed2D"},
		{"a/b:c", "a_b_c"},
		{"", "Sheet"},
		{"AngularAcceleration_Vehicle_Extended", "AngularAcceleration_Vehicle_Ext"},
	}
	for _, tc := range tests {
		if got := SheetName(tc.in); got != tc.want {
			t.Errorf("SheetName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSaveGroups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.xlsx")
	groups := group.Set{
		{Name: "Speed2D", Columns: []string{"Speed2D"}},
		{Name: "Broken", Columns: []string{"Nope"}},
		{Name: "Velocity", Columns: []string{"VelForward", "VelLateral"}},
	}
	err := SaveGroups(path, sampleTable(), groups)
	if !errors.Is(err, record.ErrUnknownColumn) {
		t.Fatalf("SaveGroups err = %v, want ErrUnknownColumn", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if diff := cmp.Diff([]string{"Speed2D", "Velocity"}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets mismatch (-want +got):\n%s", diff)
	}
	rows, err := f.GetRows("Speed2D")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	last := len(rows[0]) - 1
	if rows[0][last] != "Speed2D" || rows[1][last] != "5" || rows[2][last] != record.NAText {
		t.Fatalf("Speed2D column = %q %q %q", rows[0][last], rows[1][last], rows[2][last])
	}
}

func TestSaveGroupsNothingToWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.xlsx")
	err := SaveGroups(path, sampleTable(), group.Set{{Name: "Broken", Columns: []string{"Nope"}}})
	if !errors.Is(err, ErrNoSheets) {
		t.Fatalf("SaveGroups err = %v, want ErrNoSheets", err)
	}
}

func TestUniqueSheetNames(t *testing.T) {
	used := map[string]bool{}
	a := uniqueName("Speed", used)
	b := uniqueName("speed", used)
	if a != "Speed" || b != "speed~2" {
		t.Fatalf("names = %q, %q", a, b)
	}
}
