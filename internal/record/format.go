package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"example.com/trcgate/internal/can"
)

// NAText is how an unavailable value is written to CSV.
const NAText = "N/A"

// FormatFloat writes the shortest decimal that parses back to f. Very small
// and very large magnitudes use exponent form; integral values keep a
// trailing ".0" so numeric columns stay visibly real-valued.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func FormatValue(v can.Value) string {
	f, ok := v.Float64()
	if !ok {
		return NAText
	}
	return FormatFloat(f)
}

func ParseValue(s string) (can.Value, error) {
	s = strings.TrimSpace(s)
	if s == NAText {
		return can.NA, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return can.NA, fmt.Errorf("invalid value %q", s)
	}
	return can.Float(f), nil
}
