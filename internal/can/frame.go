package can

import (
	"fmt"
	"strings"
)

// Frame is one CAN frame read from a trace.
type Frame struct {
	Seq     uint64
	Offset  float64 // ms since trace start
	ID      uint32
	DLC     int
	Payload []byte
	TimeMs  float64 // absolute time of day in ms, Offset when unknown
}

func (f Frame) PayloadHex() string {
	var b strings.Builder
	for i, c := range f.Payload {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", c)
	}
	return b.String()
}

func (f Frame) IDHex() string {
	return fmt.Sprintf("0x%x", f.ID)
}

// TimeString renders TimeMs as h:m:s:ms with the fractional millisecond
// truncated.
func (f Frame) TimeString() string {
	return FormatTimeMs(int64(f.TimeMs))
}

func FormatTimeMs(total int64) string {
	hour := total / 3600000
	rem := total % 3600000
	minute := rem / 60000
	rem %= 60000
	second := rem / 1000
	ms := rem % 1000
	return fmt.Sprintf("%d:%d:%d:%d", hour, minute, second, ms)
}
