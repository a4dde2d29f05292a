// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the lessindex YAML configuration.
package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/lessindex/services/lessindex/ast"
	store "github.com/AleutianAI/lessindex/services/lessindex/storage/badger"
)

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "lessindex.yaml"

// Config is the root of lessindex.yaml.
type Config struct {
	Parser    ParserConfig    `yaml:"parser"`
	Index     IndexConfig     `yaml:"index"`
	Cache     CacheConfig     `yaml:"cache"`
	Watch     WatchConfig     `yaml:"watch"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

type ParserConfig struct {
	// MaxFileSize is the largest file, in bytes, the parser accepts.
	MaxFileSize int `yaml:"max_file_size" validate:"gt=0"`

	// IncludeParameters attaches mixin parameters as child symbols.
	IncludeParameters bool `yaml:"include_parameters"`
}

type IndexConfig struct {
	// Extensions limits indexing to files with these extensions.
	Extensions []string `yaml:"extensions" validate:"required,min=1,dive,startswith=."`

	// Ignore holds path.Match patterns tested against every path segment,
	// e.g. "node_modules" or "*.min.less".
	Ignore []string `yaml:"ignore"`

	// Workers bounds parallel parsing. 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0,lte=256"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the BadgerDB directory. Required unless InMemory is set.
	Path string `yaml:"path" validate:"required_if=Enabled true InMemory false"`

	InMemory bool `yaml:"in_memory"`

	// GCInterval is how often the value log is collected. 0 disables GC.
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

type WatchConfig struct {
	// Debounce is how long to wait for more events before re-indexing.
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" validate:"required"`

	// TraceExporter is one of "none", "stdout" or "otlp".
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`

	// MetricExporter is one of "none", "stdout" or "prometheus".
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`

	// OTLPEndpoint is the collector address for the otlp trace exporter.
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`

	// MetricsAddr is where "watch" serves /metrics, e.g. ":9090". Empty
	// disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format selects the stderr handler. File logs are always JSON.
	Format string `yaml:"format" validate:"oneof=text json"`

	// Dir, when set, also writes a daily JSON log file there. "~" expands
	// to the home directory.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Parser: ParserConfig{
			MaxFileSize:       ast.DefaultLessParserOptions().MaxFileSize,
			IncludeParameters: true,
		},
		Index: IndexConfig{
			Extensions: []string{".less"},
			Ignore:     []string{"node_modules", ".git", ".lessindex", "dist"},
			Workers:    0,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Path:       ".lessindex/cache",
			GCInterval: 10 * time.Minute,
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "lessindex",
			TraceExporter:  "none",
			MetricExporter: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ParserOptions converts the parser section into LessParser options.
func (c Config) ParserOptions() []ast.LessParserOption {
	return []ast.LessParserOption{
		ast.WithLessMaxFileSize(c.Parser.MaxFileSize),
		ast.WithLessIncludeParameters(c.Parser.IncludeParameters),
	}
}

// StoreConfig converts the cache section into a BadgerDB configuration.
// Relative paths are resolved against baseDir.
func (c CacheConfig) StoreConfig(baseDir string, logger *slog.Logger) store.Config {
	if c.InMemory {
		cfg := store.InMemoryConfig()
		cfg.Logger = logger
		return cfg
	}
	path := c.Path
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	cfg := store.DefaultConfig(path)
	cfg.GCInterval = c.GCInterval
	cfg.Logger = logger
	return cfg
}

// SlogLevel returns the configured log level. Unknown names map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
