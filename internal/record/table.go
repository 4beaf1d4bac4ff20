package record

import (
	"strconv"

	"example.com/trcgate/internal/can"
)

// MetadataColumns are written ahead of the signal columns and belong to
// every group file.
var MetadataColumns = []string{
	"MessageNumber",
	"TimeOffset",
	"MessageID(hex)",
	"Length",
	"Payload(hex)",
	"TimeMs",
	"TimeString",
}

// Row holds rendered metadata cells and typed signal values.
type Row struct {
	Meta   []string
	Values []can.Value
}

// Table is an ordered set of rows sharing one header.
type Table struct {
	Meta    []string
	Columns []string
	Rows    []Row
}

func NewTable(columns []string) *Table {
	return &Table{
		Meta:    append([]string(nil), MetadataColumns...),
		Columns: append([]string(nil), columns...),
	}
}

// MetaCells renders the metadata columns of f.
func MetaCells(f can.Frame) []string {
	return []string{
		strconv.FormatUint(f.Seq, 10),
		FormatFloat(f.Offset),
		f.IDHex(),
		strconv.Itoa(f.DLC),
		f.PayloadHex(),
		FormatFloat(f.TimeMs),
		f.TimeString(),
	}
}

// Append adds an assembled row. Signals must follow t.Columns.
func (t *Table) Append(r can.OutputRow) {
	t.Rows = append(t.Rows, Row{Meta: MetaCells(r.Frame), Values: r.Signals})
}

// FromOutputRows builds the full table of a conversion run.
func FromOutputRows(rows []can.OutputRow, columns []string) *Table {
	t := NewTable(columns)
	t.Rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func (t *Table) Header() []string {
	h := make([]string, 0, len(t.Meta)+len(t.Columns))
	h = append(h, t.Meta...)
	return append(h, t.Columns...)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Cells renders row i for output.
func (t *Table) Cells(i int) []string {
	r := t.Rows[i]
	out := make([]string, 0, len(r.Meta)+len(r.Values))
	out = append(out, r.Meta...)
	for _, v := range r.Values {
		out = append(out, FormatValue(v))
	}
	return out
}
