package trace

import (
	"encoding/binary"
	"sort"

	"example.com/trcgate/internal/can"
)

// TimeOfDay returns the time of day in ms carried by a time reference
// payload, or 0 when the payload is shorter than 8 bytes. Byte 4 counts
// units of 10 ms.
func TimeOfDay(payload []byte) float64 {
	if len(payload) < 8 {
		return 0
	}
	return float64(int64(payload[7])*3600000 +
		int64(payload[6])*60000 +
		int64(payload[5])*1000 +
		int64(payload[4])*10)
}

// ReconstructTime sets TimeMs of every frame from the time reference frames
// (id 0x600). Frames before the first reference are back-dated from it;
// later frames count from the most recent reference. Without any reference
// TimeMs stays equal to Offset.
func ReconstructTime(frames []can.Frame) {
	var last *can.Frame
	for i := range frames {
		f := &frames[i]
		if f.ID == can.IDTime {
			f.TimeMs = TimeOfDay(f.Payload)
			if last == nil {
				for j := 0; j < i; j++ {
					frames[j].TimeMs = f.TimeMs - (f.Offset - frames[j].Offset)
				}
			}
			last = f
			continue
		}
		if last != nil {
			f.TimeMs = last.TimeMs + (f.Offset - last.Offset)
		} else {
			f.TimeMs = f.Offset
		}
	}
}

// ApplyBrakeLightTime overrides TimeMs of brake light frames (id 0x570)
// with the time stamped in their payload: hour, minute, then milliseconds
// of the minute as a little-endian uint16. It returns the number of frames
// changed.
func ApplyBrakeLightTime(frames []can.Frame) int {
	n := 0
	for i := range frames {
		f := &frames[i]
		if f.ID != can.IDBrakeLight || len(f.Payload) < 4 {
			continue
		}
		f.TimeMs = float64(int64(f.Payload[0])*3600000 +
			int64(f.Payload[1])*60000 +
			int64(binary.LittleEndian.Uint16(f.Payload[2:4])))
		n++
	}
	return n
}

// SortByTime orders frames by TimeMs, keeping trace order among equal
// times.
func SortByTime(frames []can.Frame) {
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].TimeMs < frames[j].TimeMs
	})
}
