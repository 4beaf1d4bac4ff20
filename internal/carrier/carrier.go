// Package carrier reads the position log recorded by the cyclist target
// carrier and integrates its speed over time.
package carrier

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/common"
	"example.com/trcgate/internal/record"
)

// ClockSkewMs is added to every carrier timestamp to line the carrier clock
// up with the trace time reference.
const ClockSkewMs = 17000

var Columns = []string{"Time", "TimeString", "Position", "Speed", "PositionIntegration"}

// Point is one line of the carrier log.
type Point struct {
	TimeMs              int64
	Position            float64
	Speed               float64
	PositionIntegration float64
}

func (p Point) TimeString() string {
	return can.FormatTimeMs(p.TimeMs)
}

// ParseTime reads HH:MM:SS (or HH.MM.SS) into ms of the carrier clock,
// including ClockSkewMs.
func ParseTime(s string) (int64, error) {
	parts := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool { return r == ':' || r == '.' })
	if len(parts) < 3 {
		return 0, fmt.Errorf("time %q: want HH:MM:SS", s)
	}
	var hms [3]int64
	for i := range hms {
		v, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("time %q: %w", s, err)
		}
		hms[i] = v
	}
	return hms[0]*3600000 + hms[1]*60000 + hms[2]*1000 + ClockSkewMs, nil
}

// Parse reads "time, position, speed" lines. Blank lines and lines with
// fewer than three fields are skipped; a field that does not parse is an
// error. The first point's integration is its own position; each later
// point carries the running sum of speed trapezoids, which starts at zero.
func Parse(r io.Reader) ([]Point, error) {
	sc := bufio.NewScanner(r)
	var (
		points    []Point
		sum       float64
		prevSpeed float64
		prevTime  int64
		line      int
	)
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		fields := strings.Split(s, ",")
		if len(fields) < 3 {
			continue
		}
		t, err := ParseTime(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pos, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: position: %w", line, err)
		}
		speed, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: speed: %w", line, err)
		}
		p := Point{TimeMs: t, Position: pos, Speed: speed}
		if len(points) == 0 {
			p.PositionIntegration = pos
		} else {
			sum += (speed + prevSpeed) * float64(t-prevTime) / 2000
			p.PositionIntegration = sum
		}
		points = append(points, p)
		prevSpeed = speed
		prevTime = t
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// Load parses the carrier log at path. The file is only read.
func Load(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open carrier log %s: %w", path, err)
	}
	defer f.Close()
	points, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}

// WriteCSV writes points under Columns.
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, p := range points {
		rec := []string{
			strconv.FormatInt(p.TimeMs, 10),
			p.TimeString(),
			record.FormatFloat(p.Position),
			record.FormatFloat(p.Speed),
			record.FormatFloat(p.PositionIntegration),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func SaveCSV(path string, points []Point) error {
	return common.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, points)
	})
}
