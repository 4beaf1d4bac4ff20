package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/carrier"
	"example.com/trcgate/internal/common"
	"example.com/trcgate/internal/group"
	"example.com/trcgate/internal/manifest"
	"example.com/trcgate/internal/record"
	"example.com/trcgate/internal/report"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "convert":
		convertCmd(os.Args[2:])
	case "split":
		splitCmd(os.Args[2:])
	case "run":
		runCmd(os.Args[2:])
	case "batch":
		batchCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "manifest":
		manifestCmd(os.Args[2:])
	case "carrier":
		carrierCmd(os.Args[2:])
	case "tables":
		tablesCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`trcctl %s (built %s) <command> [options]

Commands:
  convert   --in <file.trc> [--out <file.csv>] [--config <trcctl.yaml>] [--table <table.yaml>] [--header-lines N] [--sort-time] [--brake-light] [--summary <summary.json>] [--metrics] [--progress]
  split     --in <file.csv> [--out-dir <dir>] [--config <trcctl.yaml>] [--groups <groups.yaml>] [--xlsx <file.xlsx>]
  run       --in <file.trc> [--out-dir <dir>] [--config <trcctl.yaml>] [--table <table.yaml>] [--groups <groups.yaml>] [--sort-time] [--brake-light] [--xlsx] [--metrics]
  batch     --in <dir> [--out-dir <dir>] [--concurrency N] [--config <trcctl.yaml>] [--table <table.yaml>] [--groups <groups.yaml>] [--xlsx] [--metrics] [--progress]
  report    --summary <summary.json> --pdf <file.pdf> [--manifest <manifest.json>] [--lang en|zh] [--font <font.ttf>]
  manifest  --inputs <comma-separated> --out <manifest.json>
  carrier   --in <carrier.txt> [--out <file.csv>]
  tables    [--config <trcctl.yaml>] [--table <table.yaml>] [--groups <groups.yaml>]
`, version, buildDate)
}

// pipelineFlags are shared by the commands that decode traces.
type pipelineFlags struct {
	config      *string
	table       *string
	groups      *string
	headerLines *int
	sortTime    *bool
	brakeLight  *bool
}

func addPipelineFlags(fs *flag.FlagSet) pipelineFlags {
	return pipelineFlags{
		config:      fs.String("config", "", "run configuration (default "+defaultConfigPath+" when present)"),
		table:       fs.String("table", "", "decode table YAML (overrides config)"),
		groups:      fs.String("groups", "", "group YAML (overrides config)"),
		headerLines: fs.Int("header-lines", 0, "trace header lines to skip (overrides config)"),
		sortTime:    fs.Bool("sort-time", false, "order rows by absolute time instead of trace order"),
		brakeLight:  fs.Bool("brake-light", false, "take brake light frame times from their payload"),
	}
}

type pipeline struct {
	cfg    config
	table  *can.DecodeTable
	groups group.Set
}

// load resolves the configuration and the decode table and groups it
// names, letting flags win over the file.
func (p pipelineFlags) load() (pipeline, error) {
	var pl pipeline
	cfg, err := resolveConfig(*p.config)
	if err != nil {
		return pl, fmt.Errorf("config: %w", err)
	}
	if err := setupLogging(cfg); err != nil {
		return pl, err
	}
	if *p.table != "" {
		cfg.DecodeTable = *p.table
	}
	if *p.groups != "" {
		cfg.Groups = *p.groups
	}
	if *p.headerLines > 0 {
		cfg.HeaderLines = *p.headerLines
	}
	if *p.brakeLight {
		cfg.BrakeLight = true
	}
	pl.cfg = cfg
	if pl.table, err = can.LoadOrDefault(cfg.DecodeTable); err != nil {
		return pl, fmt.Errorf("decode table: %w", err)
	}
	if pl.groups, err = group.LoadOrDefault(cfg.Groups); err != nil {
		return pl, fmt.Errorf("groups: %w", err)
	}
	return pl, nil
}

func convertCmd(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	in := fs.String("in", "", "input .trc")
	out := fs.String("out", "", "output CSV (default: input with .csv)")
	summaryOut := fs.String("summary", "", "run summary JSON")
	metricsFlag := fs.Bool("metrics", false, "print conversion metrics")
	progressFlag := fs.Bool("progress", false, "display conversion progress")
	pf := addPipelineFlags(fs)
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	pl, err := pf.load()
	if err != nil {
		fmt.Println("setup:", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".csv"
	}

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
		metrics.Start()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	res, err := convertTrace(convertOptions{
		In:          *in,
		Out:         *out,
		SummaryOut:  *summaryOut,
		Table:       pl.table,
		HeaderLines: pl.cfg.HeaderLines,
		SortTime:    *pf.sortTime,
		BrakeLight:  pl.cfg.BrakeLight,
		Metrics:     metrics,
	})
	if stopProgress != nil {
		stopProgress()
	}
	if metrics != nil {
		metrics.Stop()
	}
	if err != nil {
		fmt.Println("convert:", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d rows, %d columns)\n", *out, res.Table.Len(), len(res.Table.Header()))
	if *summaryOut != "" {
		fmt.Println("Wrote", *summaryOut)
	}
	if metrics != nil && *metricsFlag {
		printMetrics(metrics.Snapshot())
	}
}

func printMetrics(snap common.MetricsSnapshot) {
	fmt.Printf("Metrics: duration=%s files=%d frames=%d skipped=%d unavailable=%d processed=%s throughput=%.2f MB/s\n",
		snap.Duration.Round(10*time.Millisecond),
		snap.Files,
		snap.Frames,
		snap.Skipped,
		snap.Degraded,
		common.FormatBytes(snap.Bytes),
		snap.ThroughputBytesPerSecond()/1_000_000,
	)
}

func splitCmd(args []string) {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	in := fs.String("in", "", "converted CSV")
	outDir := fs.String("out-dir", "", "group files directory (default: <input>_groups)")
	xlsxOut := fs.String("xlsx", "", "also write the groups as one XLSX workbook")
	pf := addPipelineFlags(fs)
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	pl, err := pf.load()
	if err != nil {
		fmt.Println("setup:", err)
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = strings.TrimSuffix(*in, filepath.Ext(*in)) + "_groups"
	}
	tbl, err := record.LoadCSV(*in)
	if err != nil {
		fmt.Println("read csv:", err)
		os.Exit(1)
	}
	paths, err := splitTable(tbl, *outDir, pl.groups, *xlsxOut)
	for _, p := range paths {
		fmt.Println("Wrote", p)
	}
	if err != nil {
		fmt.Println("split:", err)
		os.Exit(1)
	}
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	in := fs.String("in", "", "input .trc")
	outDir := fs.String("out-dir", "", "output directory (overrides config)")
	xlsx := fs.Bool("xlsx", false, "also write the groups as an XLSX workbook")
	metricsFlag := fs.Bool("metrics", false, "print conversion metrics")
	pf := addPipelineFlags(fs)
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	pl, err := pf.load()
	if err != nil {
		fmt.Println("setup:", err)
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = pl.cfg.OutputDir
	}
	metrics := common.NewMetrics()
	metrics.Start()
	entry := runOne(runOptions{
		In:          *in,
		OutDir:      *outDir,
		Table:       pl.table,
		Groups:      pl.groups,
		HeaderLines: pl.cfg.HeaderLines,
		SortTime:    *pf.sortTime,
		BrakeLight:  pl.cfg.BrakeLight,
		XLSX:        *xlsx,
		Metrics:     metrics,
	})
	metrics.Stop()
	for _, p := range entry.Outputs {
		fmt.Println("Wrote", p)
	}
	if entry.Failed() {
		fmt.Println("run:", entry.Error)
		os.Exit(1)
	}
	if *metricsFlag {
		printMetrics(metrics.Snapshot())
	}
}

func batchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inDir := fs.String("in", ".", "input directory")
	outDir := fs.String("out-dir", "", "results directory (overrides config)")
	concurrency := fs.Int("concurrency", 0, "parallel conversions (overrides config)")
	xlsx := fs.Bool("xlsx", false, "also write an XLSX workbook per trace")
	metricsFlag := fs.Bool("metrics", false, "print batch metrics")
	progressFlag := fs.Bool("progress", false, "display batch progress")
	pf := addPipelineFlags(fs)
	fs.Parse(args)

	pl, err := pf.load()
	if err != nil {
		fmt.Println("setup:", err)
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = pl.cfg.OutputDir
	}
	if *concurrency <= 0 {
		*concurrency = pl.cfg.Concurrency
	}
	metrics := common.NewMetrics()
	metrics.Start()
	var stopProgress func()
	if *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	entries, err := runBatch(*inDir, *outDir, *concurrency, runOptions{
		Table:       pl.table,
		Groups:      pl.groups,
		HeaderLines: pl.cfg.HeaderLines,
		SortTime:    *pf.sortTime,
		BrakeLight:  pl.cfg.BrakeLight,
		XLSX:        *xlsx,
		Metrics:     metrics,
	})
	if stopProgress != nil {
		stopProgress()
	}
	metrics.Stop()
	if err != nil {
		fmt.Println("batch:", err)
		os.Exit(1)
	}
	failed := 0
	for _, e := range entries {
		status := "ok"
		if e.Failed() {
			status = "FAILED: " + e.Error
			failed++
		}
		fmt.Printf("%s: %d frames, %d unavailable, %s\n", e.Input, e.Frames, e.Degraded, status)
	}
	fmt.Printf("Converted %d/%d traces into %s\n", len(entries)-failed, len(entries), *outDir)
	if *metricsFlag {
		printMetrics(metrics.Snapshot())
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	summaryPath := fs.String("summary", "", "run summary JSON")
	pdfPath := fs.String("pdf", "", "output PDF path")
	manifestPath := fs.String("manifest", "", "manifest JSON whose digest is printed with a QR code")
	langFlag := fs.String("lang", "", "report language ("+strings.Join(report.Languages(), ", ")+")")
	font := fs.String("font", "", "UTF-8 TrueType font, required for zh")
	configPath := fs.String("config", "", "run configuration")
	fs.Parse(args)

	if *summaryPath == "" || *pdfPath == "" {
		fmt.Println("required: --summary, --pdf")
		os.Exit(1)
	}
	cfg, err := resolveConfig(*configPath)
	if err != nil {
		fmt.Println("config:", err)
		os.Exit(1)
	}
	if *langFlag == "" {
		*langFlag = cfg.Lang
	}
	if *font == "" {
		*font = cfg.Font
	}
	lang, err := report.ParseLanguage(*langFlag)
	if err == nil {
		err = lang.CheckFont(*font)
	}
	if err != nil {
		fmt.Println("lang:", err)
		os.Exit(1)
	}
	sum, err := report.LoadSummaryJSON(*summaryPath)
	if err != nil {
		fmt.Println("read summary:", err)
		os.Exit(1)
	}
	opts := report.PDFOptions{Lang: lang, FontPath: *font}
	if *manifestPath != "" {
		if opts.ManifestDigest, err = manifest.Digest(*manifestPath); err != nil {
			fmt.Println("manifest digest:", err)
			os.Exit(1)
		}
	}
	if err := report.SaveSummaryPDF(sum, *pdfPath, opts); err != nil {
		fmt.Println("write pdf:", err)
		os.Exit(1)
	}
	fmt.Println("Wrote", *pdfPath)
}

func manifestCmd(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	inputs := fs.String("inputs", "", "comma-separated files")
	out := fs.String("out", "manifest.json", "manifest output")
	fs.Parse(args)

	var paths []string
	for _, p := range strings.Split(*inputs, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		fmt.Println("no input paths specified")
		os.Exit(1)
	}
	m, err := manifest.Build(paths)
	if err != nil {
		fmt.Println("manifest build:", err)
		os.Exit(1)
	}
	if err := manifest.Save(m, *out); err != nil {
		fmt.Println("manifest save:", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (run %s, %d items)\n", *out, m.RunID, len(m.Items))
}

func carrierCmd(args []string) {
	fs := flag.NewFlagSet("carrier", flag.ExitOnError)
	in := fs.String("in", "", "carrier log")
	out := fs.String("out", "", "output CSV (default: input with .csv)")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	if *out == "" {
		*out = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".csv"
	}
	points, err := carrier.Load(*in)
	if err != nil {
		fmt.Println("carrier:", err)
		os.Exit(1)
	}
	if err := carrier.SaveCSV(*out, points); err != nil {
		fmt.Println("write csv:", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d points)\n", *out, len(points))
}

type tablesDump struct {
	Messages []can.YAMLMessage `yaml:"messages"`
	Groups   []group.Group     `yaml:"groups"`
}

func tablesCmd(args []string) {
	fs := flag.NewFlagSet("tables", flag.ExitOnError)
	pf := addPipelineFlags(fs)
	fs.Parse(args)

	pl, err := pf.load()
	if err != nil {
		fmt.Println("setup:", err)
		os.Exit(1)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(tablesDump{Messages: pl.table.ToYAML().Messages, Groups: pl.groups}); err != nil {
		fmt.Println("encode:", err)
		os.Exit(1)
	}
	enc.Close()
}
