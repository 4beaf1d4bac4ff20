package can

// OutputRow is one frame together with a value for every table column.
// Signals is aligned with DecodeTable.Columns.
type OutputRow struct {
	Frame   Frame
	Signals []Value
}

// Assembler turns frames into rows one at a time.
type Assembler struct {
	table    *DecodeTable
	degraded int64
}

func NewAssembler(t *DecodeTable) *Assembler {
	return &Assembler{table: t}
}

// Add decodes f into a row. Columns the frame does not carry are NA.
func (a *Assembler) Add(f Frame) OutputRow {
	row := OutputRow{Frame: f, Signals: make([]Value, a.table.width())}
	for _, sig := range Decode(f, a.table) {
		i, ok := a.table.ColumnIndex(sig.Name)
		if !ok {
			continue
		}
		if !sig.Value.Available() {
			a.degraded++
		}
		row.Signals[i] = sig.Value
	}
	return row
}

// Degraded counts the signals that were expected for a frame id but could
// not be decoded from its payload.
func (a *Assembler) Degraded() int64 {
	return a.degraded
}

// Assemble produces exactly one row per frame, in input order.
func Assemble(frames []Frame, t *DecodeTable) []OutputRow {
	a := NewAssembler(t)
	rows := make([]OutputRow, 0, len(frames))
	for _, f := range frames {
		rows = append(rows, a.Add(f))
	}
	return rows
}
