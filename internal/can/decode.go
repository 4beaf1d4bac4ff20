package can

import "encoding/binary"

// Decode extracts the signals described for f.ID. An unknown id yields no
// signals; a spec whose bytes are not all present yields NA for each of its
// elements without affecting the other specs of the same id.
func Decode(f Frame, t *DecodeTable) []DecodedSignal {
	specs, ok := t.specsFor(f.ID)
	if !ok {
		return nil
	}
	var out []DecodedSignal
	for _, s := range specs {
		names := s.ElementNames()
		if len(f.Payload) < s.RequiredBytes() {
			for _, name := range names {
				out = append(out, DecodedSignal{Name: name, Value: NA})
			}
			continue
		}
		width := s.Format.Width()
		for i, name := range names {
			raw := readElement(f.Payload[s.Offset+i*width:], s.Format)
			out = append(out, DecodedSignal{Name: name, Value: Float(float64(raw) * s.Scale)})
		}
	}
	return out
}

// specsFor is Lookup without the copy.
func (t *DecodeTable) specsFor(id uint32) ([]SignalSpec, bool) {
	if t == nil {
		return nil, false
	}
	list, ok := t.specs[id]
	return list, ok
}

func readElement(b []byte, f ElementFormat) int64 {
	switch f {
	case Uint16:
		return int64(binary.LittleEndian.Uint16(b))
	case Int16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case Int32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case Int64:
		return int64(binary.LittleEndian.Uint64(b))
	}
	return 0
}
