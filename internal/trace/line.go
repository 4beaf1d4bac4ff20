// Package trace reads PCAN-View .trc text traces into CAN frames and
// reconstructs absolute time of day from the rig's time reference message.
package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"example.com/trcgate/internal/can"
)

const (
	// MinLineLength is the shortest line that can carry a frame; anything of
	// this length or shorter is skipped without parsing.
	MinLineLength = 40

	maxPayload = 8

	tokID      = 4
	tokDLC     = 6
	tokPayload = 7
)

var ErrMalformedLine = errors.New("malformed trace line")

// ParseLine decodes one data line of a trace:
//
//	N)  offset  bus  dir  id  -  dlc  b0 b1 ... b(dlc-1)
//
// The payload holds the bytes actually present on the line, at most dlc.
// TimeMs is set to the offset.
func ParseLine(s string) (can.Frame, error) {
	var f can.Frame
	tokens := strings.Fields(s)
	if len(tokens) < tokPayload {
		return f, fmt.Errorf("%w: %d tokens", ErrMalformedLine, len(tokens))
	}
	seq, err := strconv.ParseUint(strings.TrimSuffix(tokens[0], ")"), 10, 64)
	if err != nil {
		return f, fmt.Errorf("%w: message number %q", ErrMalformedLine, tokens[0])
	}
	offset, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return f, fmt.Errorf("%w: time offset %q", ErrMalformedLine, tokens[1])
	}
	id, err := can.ParseID(tokens[tokID])
	if err != nil {
		return f, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	dlc, err := strconv.Atoi(tokens[tokDLC])
	if err != nil || dlc < 0 || dlc > maxPayload {
		return f, fmt.Errorf("%w: length %q", ErrMalformedLine, tokens[tokDLC])
	}
	data := tokens[tokPayload:]
	if len(data) > dlc {
		data = data[:dlc]
	}
	payload := make([]byte, len(data))
	for i, tok := range data {
		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return f, fmt.Errorf("%w: payload byte %d %q", ErrMalformedLine, i, tok)
		}
		payload[i] = byte(b)
	}
	f = can.Frame{
		Seq:     seq,
		Offset:  offset,
		ID:      id,
		DLC:     dlc,
		Payload: payload,
		TimeMs:  offset,
	}
	return f, nil
}
