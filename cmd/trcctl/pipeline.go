package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/common"
	"example.com/trcgate/internal/group"
	"example.com/trcgate/internal/record"
	"example.com/trcgate/internal/report"
	"example.com/trcgate/internal/trace"
	"example.com/trcgate/internal/workbook"
)

type convertOptions struct {
	In          string
	Out         string
	SummaryOut  string
	Table       *can.DecodeTable
	HeaderLines int
	SortTime    bool
	BrakeLight  bool
	Metrics     *common.Metrics
}

type convertResult struct {
	Table   *record.Table
	Summary report.Summary
}

// convertTrace reads one trace, writes its full table to opts.Out and, when
// requested, the run summary. Counters go to opts.Metrics, or to a private
// set when it is nil; the summary only counts lines of this trace.
func convertTrace(opts convertOptions) (convertResult, error) {
	var res convertResult
	m := opts.Metrics
	if m == nil {
		m = common.NewMetrics()
	}
	before := m.Snapshot()
	frames, err := trace.ReadFile(opts.In, trace.Options{HeaderLines: opts.HeaderLines, Metrics: m})
	if err != nil {
		return res, err
	}
	if opts.BrakeLight {
		trace.ApplyBrakeLightTime(frames)
	}
	if opts.SortTime {
		trace.SortByTime(frames)
	}

	asm := can.NewAssembler(opts.Table)
	tbl := record.NewTable(opts.Table.Columns())
	tbl.Rows = make([]record.Row, 0, len(frames))
	for _, f := range frames {
		tbl.Append(asm.Add(f))
	}
	if err := record.SaveCSV(opts.Out, tbl); err != nil {
		return res, err
	}

	sum := report.Summarize(opts.In, frames, tbl)
	sum.Output = opts.Out
	sum.Degraded = asm.Degraded()
	m.AddDegraded(asm.Degraded())
	m.IncFiles()
	sum.Skipped = m.Snapshot().Skipped - before.Skipped
	if opts.SummaryOut != "" {
		if err := report.SaveSummaryJSON(sum, opts.SummaryOut); err != nil {
			return res, err
		}
	}
	common.Logf("converted %s: %d frames, %d unavailable signals -> %s", opts.In, len(frames), sum.Degraded, opts.Out)
	res.Table = tbl
	res.Summary = sum
	return res, nil
}

// splitTable writes one CSV per group, plus the workbook when xlsxOut is
// set. Groups naming unknown columns are reported in the returned error;
// the others are still written.
func splitTable(tbl *record.Table, outDir string, groups group.Set, xlsxOut string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	paths, err := record.WriteGroupFiles(outDir, tbl, groups)
	if xlsxOut == "" {
		return paths, err
	}
	// SaveGroups repeats the partition errors already in err.
	werr := workbook.SaveGroups(xlsxOut, tbl, groups)
	switch {
	case errors.Is(werr, workbook.ErrNoSheets):
		return paths, err
	case werr != nil && !errors.Is(werr, record.ErrUnknownColumn):
		return paths, errors.Join(err, werr)
	}
	return append(paths, xlsxOut), err
}

func outputBase(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

type runOptions struct {
	In          string
	OutDir      string
	Table       *can.DecodeTable
	Groups      group.Set
	HeaderLines int
	SortTime    bool
	BrakeLight  bool
	XLSX        bool
	Metrics     *common.Metrics
}

// runOne converts a trace and splits it into outDir: <base>.csv,
// <base>_summary.json and the group files. Counters are kept per file and
// merged into opts.Metrics at the end.
func runOne(opts runOptions) common.RunEntry {
	entry := common.RunEntry{Input: opts.In, Ts: time.Now().UTC()}
	base := outputBase(opts.In)
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		entry.Error = err.Error()
		return entry
	}
	m := common.NewMetrics()
	if opts.Metrics != nil {
		defer func() { opts.Metrics.Merge(m.Snapshot()) }()
	}
	csvPath := filepath.Join(opts.OutDir, base+".csv")
	sumPath := filepath.Join(opts.OutDir, base+"_summary.json")
	res, err := convertTrace(convertOptions{
		In:          opts.In,
		Out:         csvPath,
		SummaryOut:  sumPath,
		Table:       opts.Table,
		HeaderLines: opts.HeaderLines,
		SortTime:    opts.SortTime,
		BrakeLight:  opts.BrakeLight,
		Metrics:     m,
	})
	entry.Skipped = m.Snapshot().Skipped
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Outputs = append(entry.Outputs, csvPath, sumPath)
	entry.Frames = int64(res.Summary.Frames)
	entry.Degraded = res.Summary.Degraded
	xlsxOut := ""
	if opts.XLSX {
		xlsxOut = filepath.Join(opts.OutDir, base+".xlsx")
	}
	paths, err := splitTable(res.Table, filepath.Join(opts.OutDir, base+"_groups"), opts.Groups, xlsxOut)
	entry.Outputs = append(entry.Outputs, paths...)
	if err != nil {
		entry.Error = err.Error()
	}
	return entry
}

// findTraces lists the .trc files under dir in lexical order.
func findTraces(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".trc") {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// runBatch converts every trace under inDir with a bounded number of
// workers sharing one decode table. Each trace gets its own directory under
// outDir, mirroring its path relative to inDir. Every result is appended to
// the run log in outDir.
func runBatch(inDir, outDir string, concurrency int, base runOptions) ([]common.RunEntry, error) {
	inputs, err := findTraces(inDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", inDir, err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no .trc files under %s", inDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if base.Metrics != nil {
		for _, p := range inputs {
			if info, err := os.Stat(p); err == nil {
				base.Metrics.AddTotalBytes(info.Size())
			}
		}
	}
	runLog := common.NewRunLog(filepath.Join(outDir, "runs.jsonl"))
	common.Logf("batch: %d traces, %d workers, run log %s", len(inputs), concurrency, runLog.Path())
	results := make([]common.RunEntry, len(inputs))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < concurrency && w < len(inputs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				opts := base
				opts.In = inputs[i]
				opts.OutDir = filepath.Join(outDir, batchDir(inDir, inputs[i]))
				entry := runOne(opts)
				if err := runLog.Append(entry); err != nil {
					common.Logf("run log: %v", err)
				}
				results[i] = entry
			}
		}()
	}
	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results, nil
}

func batchDir(inDir, path string) string {
	rel, err := filepath.Rel(inDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}
