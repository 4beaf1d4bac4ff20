package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"example.com/trcgate/internal/common"
	"example.com/trcgate/internal/trace"
)

const defaultConfigPath = "config/trcctl.yaml"

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	HeaderLines int       `yaml:"headerLines"`
	DecodeTable string    `yaml:"decodeTable"`
	Groups      string    `yaml:"groups"`
	OutputDir   string    `yaml:"outputDir"`
	Concurrency int       `yaml:"concurrency"`
	Lang        string    `yaml:"lang"`
	Font        string    `yaml:"font"`
	BrakeLight  bool      `yaml:"brakeLight"`
	Logs        logConfig `yaml:"logs"`
}

func defaultConfig() config {
	cfg := config{}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *config) {
	if cfg.HeaderLines <= 0 {
		cfg.HeaderLines = trace.DefaultHeaderLines
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "out"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
}

func loadConfig(path string) (config, error) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		candidate := filepath.Clean(filepath.Join(baseDir, p))
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		return filepath.Clean(p)
	}
	cfg.DecodeTable = resolvePath(cfg.DecodeTable)
	cfg.Groups = resolvePath(cfg.Groups)
	cfg.Font = resolvePath(cfg.Font)
	cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	applyDefaults(&cfg)
	return cfg, nil
}

// resolveConfig loads path, or the default config file when path is empty
// and that file exists. Without either the built-in defaults apply.
func resolveConfig(path string) (config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return defaultConfig(), nil
		}
		path = defaultConfigPath
	}
	return loadConfig(path)
}

// setupLogging adds a rotating log file next to stderr when a log directory
// is configured.
func setupLogging(cfg config) error {
	if cfg.Logs.Directory == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logs.Directory, "trcctl.log"),
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	common.SetLogOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}
