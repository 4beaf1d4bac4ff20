package record

import (
	"errors"
	"fmt"
	"path/filepath"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/group"
)

// ErrUnknownColumn is wrapped by ConfigError.
var ErrUnknownColumn = errors.New("unknown column")

// ConfigError reports a group that names a column the table does not have.
type ConfigError struct {
	Group  string
	Column string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("group %s: %v %s", e.Group, ErrUnknownColumn, e.Column)
}

func (e *ConfigError) Unwrap() error {
	return ErrUnknownColumn
}

// Project restricts t to the metadata columns plus g's columns, in g's
// order. Every missing column is reported.
func Project(t *Table, g group.Group) (*Table, error) {
	idx := make([]int, 0, len(g.Columns))
	var errs []error
	for _, c := range g.Columns {
		i, ok := t.ColumnIndex(c)
		if !ok {
			errs = append(errs, &ConfigError{Group: g.Name, Column: c})
			continue
		}
		idx = append(idx, i)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	out := &Table{
		Meta:    append([]string(nil), t.Meta...),
		Columns: append([]string(nil), g.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for r, row := range t.Rows {
		vals := make([]can.Value, len(idx))
		for j, i := range idx {
			vals[j] = row.Values[i]
		}
		out.Rows[r] = Row{Meta: row.Meta, Values: vals}
	}
	return out, nil
}

// Partition projects t onto every group. Groups with configuration errors
// are left out of the result and their errors joined; the others are still
// returned.
func Partition(t *Table, groups group.Set) (map[string]*Table, error) {
	out := make(map[string]*Table, len(groups))
	var errs []error
	for _, g := range groups {
		sub, err := Project(t, g)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[g.Name] = sub
	}
	return out, errors.Join(errs...)
}

// GroupFileName names the file of the group at 1-based position index.
func GroupFileName(index int, name string) string {
	return fmt.Sprintf("%02d_%s.csv", index, name)
}

// WriteGroupFiles partitions t and saves each group under dir. It returns
// the paths written, in group order, along with any partition or write
// errors.
func WriteGroupFiles(dir string, t *Table, groups group.Set) ([]string, error) {
	parts, perr := Partition(t, groups)
	var paths []string
	var errs []error
	if perr != nil {
		errs = append(errs, perr)
	}
	for i, g := range groups {
		sub, ok := parts[g.Name]
		if !ok {
			continue
		}
		path := filepath.Join(dir, GroupFileName(i+1, g.Name))
		if err := SaveCSV(path, sub); err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}
