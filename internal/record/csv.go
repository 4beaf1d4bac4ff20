package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/common"
)

// WriteCSV writes the header and every row of t.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	for i := range t.Rows {
		if err := cw.Write(t.Cells(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes t to path; a failure never leaves a partial file at path.
func SaveCSV(path string, t *Table) error {
	return common.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, t)
	})
}

var metadataSet = func() map[string]bool {
	m := make(map[string]bool, len(MetadataColumns))
	for _, c := range MetadataColumns {
		m[c] = true
	}
	return m
}()

// ReadCSV loads a table written by WriteCSV. Leading header cells naming
// metadata columns are kept as text; every later cell must be a number or
// N/A.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header")
		}
		return nil, err
	}
	metaCount := 0
	for metaCount < len(header) && metadataSet[header[metaCount]] {
		metaCount++
	}
	if metaCount == 0 {
		return nil, fmt.Errorf("csv: header does not start with metadata columns (got %q)", header[0])
	}
	t := &Table{
		Meta:    append([]string(nil), header[:metaCount]...),
		Columns: append([]string(nil), header[metaCount:]...),
	}
	seen := make(map[string]bool, len(header))
	for _, c := range header {
		if seen[c] {
			return nil, fmt.Errorf("csv: duplicate column %q", c)
		}
		seen[c] = true
	}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		row := Row{
			Meta:   append([]string(nil), rec[:metaCount]...),
			Values: make([]can.Value, len(t.Columns)),
		}
		for i, cell := range rec[metaCount:] {
			v, err := ParseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("csv: line %d column %s: %w", line, t.Columns[i], err)
			}
			row.Values[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}
