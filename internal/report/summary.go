package report

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/record"
)

// SignalStats describes one signal column over a whole run. Min, Max, Mean
// and StdDev are zero when no value was available.
type SignalStats struct {
	Name      string  `json:"name"`
	Available int     `json:"available"`
	Missing   int     `json:"missing"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stddev"`
}

type IDCount struct {
	ID     string `json:"id"`
	Frames int    `json:"frames"`
}

// Summary is written next to the converted CSV.
type Summary struct {
	Input       string        `json:"input"`
	Output      string        `json:"output,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Frames      int           `json:"frames"`
	Skipped     int64         `json:"skipped"`
	Degraded    int64         `json:"degraded"`
	FirstTimeMs float64       `json:"firstTimeMs"`
	LastTimeMs  float64       `json:"lastTimeMs"`
	IDs         []IDCount     `json:"ids"`
	Signals     []SignalStats `json:"signals"`
}

// Summarize counts frames per id and computes statistics of every signal
// column of t. Skipped and Degraded are left for the caller, who owns the
// run metrics.
func Summarize(input string, frames []can.Frame, t *record.Table) Summary {
	s := Summary{
		Input:       input,
		GeneratedAt: time.Now().UTC(),
		Frames:      len(frames),
	}
	counts := make(map[uint32]int)
	for i, f := range frames {
		counts[f.ID]++
		if i == 0 || f.TimeMs < s.FirstTimeMs {
			s.FirstTimeMs = f.TimeMs
		}
		if i == 0 || f.TimeMs > s.LastTimeMs {
			s.LastTimeMs = f.TimeMs
		}
	}
	ids := make([]uint32, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		s.IDs = append(s.IDs, IDCount{ID: can.Frame{ID: id}.IDHex(), Frames: counts[id]})
	}
	if t == nil {
		return s
	}
	for c, name := range t.Columns {
		var vals []float64
		for _, row := range t.Rows {
			if v, ok := row.Values[c].Float64(); ok {
				vals = append(vals, v)
			}
		}
		s.Signals = append(s.Signals, columnStats(name, vals, t.Len()))
	}
	return s
}

func columnStats(name string, vals []float64, rows int) SignalStats {
	st := SignalStats{Name: name, Available: len(vals), Missing: rows - len(vals)}
	if len(vals) == 0 {
		return st
	}
	st.Min = floats.Min(vals)
	st.Max = floats.Max(vals)
	if len(vals) == 1 {
		st.Mean = vals[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(vals, nil)
	return st
}

// Signal returns the statistics of the named column.
func (s Summary) Signal(name string) (SignalStats, bool) {
	for _, st := range s.Signals {
		if st.Name == name {
			return st, true
		}
	}
	return SignalStats{}, false
}
