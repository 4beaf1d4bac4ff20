package can

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ElementFormat describes the little-endian integer encoding of one element.
type ElementFormat int

const (
	FormatInvalid ElementFormat = iota
	Uint16
	Int16
	Int32
	Int64
)

const maxPayloadLen = 8

var formatNames = map[ElementFormat]string{
	Uint16: "uint16",
	Int16:  "int16",
	Int32:  "int32",
	Int64:  "int64",
}

func (f ElementFormat) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Width returns the element size in bytes, 0 for an unknown format.
func (f ElementFormat) Width() int {
	switch f {
	case Uint16, Int16:
		return 2
	case Int32:
		return 4
	case Int64:
		return 8
	}
	return 0
}

// ParseElementFormat accepts the format names and the legacy width codes
// (1 = unsigned 16 bit, 2, 4, 8 = signed 16/32/64 bit).
func ParseElementFormat(s string) (ElementFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint16", "u16", "1":
		return Uint16, nil
	case "int16", "i16", "2":
		return Int16, nil
	case "int32", "i32", "4":
		return Int32, nil
	case "int64", "i64", "8":
		return Int64, nil
	}
	return FormatInvalid, fmt.Errorf("unknown element format %q", s)
}

// SignalSpec tells the decoder how to extract one field from a payload.
// Count consecutive elements are read starting at Offset; with Count 2 the
// element columns are named by Elements, otherwise by Name.
type SignalSpec struct {
	Name     string
	Offset   int
	Scale    float64
	Format   ElementFormat
	Count    int
	Elements []string
}

func (s SignalSpec) count() int {
	if s.Count <= 0 {
		return 1
	}
	return s.Count
}

// RequiredBytes is the payload length needed to decode every element.
func (s SignalSpec) RequiredBytes() int {
	return s.Offset + s.Format.Width()*s.count()
}

// ElementNames returns the output column of each element in payload order.
func (s SignalSpec) ElementNames() []string {
	if s.count() == 1 {
		return []string{s.Name}
	}
	return append([]string(nil), s.Elements...)
}

func (s SignalSpec) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("missing name")
	}
	if s.Offset < 0 {
		return fmt.Errorf("negative offset %d", s.Offset)
	}
	if s.Format.Width() == 0 {
		return fmt.Errorf("invalid format %s", s.Format)
	}
	if math.IsNaN(s.Scale) || math.IsInf(s.Scale, 0) {
		return fmt.Errorf("scale %v is not finite", s.Scale)
	}
	if s.Count < 0 {
		return fmt.Errorf("negative count %d", s.Count)
	}
	switch s.count() {
	case 1:
		if len(s.Elements) > 0 {
			return fmt.Errorf("count 1 with %d element names", len(s.Elements))
		}
	case 2:
		if len(s.Elements) != 2 {
			return fmt.Errorf("count 2 needs 2 element names, got %d", len(s.Elements))
		}
	default:
		return fmt.Errorf("count %d out of range", s.Count)
	}
	if s.RequiredBytes() > maxPayloadLen {
		return fmt.Errorf("needs %d bytes, CAN payload holds %d", s.RequiredBytes(), maxPayloadLen)
	}
	return nil
}

// DecodeTable maps message ids to their signal layouts. It is immutable
// once built and may be shared between goroutines.
type DecodeTable struct {
	ids     []uint32
	specs   map[uint32][]SignalSpec
	columns []string
	index   map[string]int
}

// NewDecodeTable validates the layouts and fixes the column order: ids
// ascending, specs and elements in the order given.
func NewDecodeTable(entries map[uint32][]SignalSpec) (*DecodeTable, error) {
	t := &DecodeTable{
		specs: make(map[uint32][]SignalSpec, len(entries)),
		index: make(map[string]int),
	}
	for id := range entries {
		t.ids = append(t.ids, id)
	}
	sort.Slice(t.ids, func(i, j int) bool { return t.ids[i] < t.ids[j] })
	for _, id := range t.ids {
		list := make([]SignalSpec, 0, len(entries[id]))
		for _, s := range entries[id] {
			s.Name = strings.TrimSpace(s.Name)
			if err := s.validate(); err != nil {
				return nil, fmt.Errorf("can: id 0x%X signal %q: %w", id, s.Name, err)
			}
			elements := make([]string, len(s.Elements))
			for i, e := range s.Elements {
				elements[i] = strings.TrimSpace(e)
			}
			s.Elements = elements
			for _, name := range s.ElementNames() {
				if name == "" {
					return nil, fmt.Errorf("can: id 0x%X signal %q: empty element name", id, s.Name)
				}
				if _, dup := t.index[name]; dup {
					return nil, fmt.Errorf("can: id 0x%X: duplicate column %q", id, name)
				}
				t.index[name] = len(t.columns)
				t.columns = append(t.columns, name)
			}
			list = append(list, s)
		}
		t.specs[id] = list
	}
	return t, nil
}

// Lookup returns a copy of the layouts registered for id.
func (t *DecodeTable) Lookup(id uint32) ([]SignalSpec, bool) {
	if t == nil {
		return nil, false
	}
	list, ok := t.specs[id]
	if !ok {
		return nil, false
	}
	return append([]SignalSpec(nil), list...), true
}

func (t *DecodeTable) IDs() []uint32 {
	if t == nil {
		return nil
	}
	return append([]uint32(nil), t.ids...)
}

// Columns lists every signal column the table can produce.
func (t *DecodeTable) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

func (t *DecodeTable) width() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

// ColumnIndex returns the position of name within Columns.
func (t *DecodeTable) ColumnIndex(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[name]
	return i, ok
}
