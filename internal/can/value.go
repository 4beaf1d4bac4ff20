package can

// Value is a decoded physical value or the explicit not-available marker.
// The zero Value is not available.
type Value struct {
	v  float64
	ok bool
}

// NA marks a signal that could not be decoded for a frame.
var NA = Value{}

func Float(f float64) Value {
	return Value{v: f, ok: true}
}

func (v Value) Float64() (float64, bool) {
	return v.v, v.ok
}

func (v Value) Available() bool {
	return v.ok
}

func (v Value) Equal(o Value) bool {
	if v.ok != o.ok {
		return false
	}
	return !v.ok || v.v == o.v
}

// DecodedSignal pairs a column name with the value decoded for it.
type DecodedSignal struct {
	Name  string
	Value Value
}
