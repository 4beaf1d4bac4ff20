// Package workbook exports partitioned tables as one XLSX sheet per group.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"example.com/trcgate/internal/common"
	"example.com/trcgate/internal/group"
	"example.com/trcgate/internal/record"
)

const maxSheetName = 31

// ErrNoSheets is returned when there is nothing to put in a workbook.
var ErrNoSheets = errors.New("workbook: no sheets")

type Sheet struct {
	Name  string
	Table *record.Table
}

// SheetName makes name usable as a worksheet name: forbidden characters
// become '_' and the result is cut to 31 characters.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if name == "" {
		name = "Sheet"
	}
	return name
}

// Write renders sheets, in order, into w.
func Write(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return ErrNoSheets
	}
	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool, len(sheets))
	for i, s := range sheets {
		name := uniqueName(SheetName(s.Name), used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, s.Table); err != nil {
			return fmt.Errorf("workbook: sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func uniqueName(name string, used map[string]bool) string {
	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func writeSheet(f *excelize.File, sheet string, t *record.Table) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	header := t.Header()
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return err
	}
	for r, row := range t.Rows {
		cells := make([]interface{}, 0, len(row.Meta)+len(row.Values))
		for _, m := range row.Meta {
			cells = append(cells, m)
		}
		for _, v := range row.Values {
			if x, ok := v.Float64(); ok {
				cells = append(cells, x)
			} else {
				cells = append(cells, record.NAText)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// Save writes sheets to path; a failure never leaves a partial file.
func Save(path string, sheets []Sheet) error {
	return common.WriteFileAtomic(path, func(w io.Writer) error {
		return Write(w, sheets)
	})
}

// SaveGroups partitions t and writes one sheet per group that could be
// built. Partition errors are returned alongside a successful write.
func SaveGroups(path string, t *record.Table, groups group.Set) error {
	parts, perr := record.Partition(t, groups)
	var sheets []Sheet
	for _, g := range groups {
		if sub, ok := parts[g.Name]; ok {
			sheets = append(sheets, Sheet{Name: g.Name, Table: sub})
		}
	}
	if len(sheets) == 0 {
		return errors.Join(perr, ErrNoSheets)
	}
	if err := Save(path, sheets); err != nil {
		return errors.Join(perr, err)
	}
	return perr
}
