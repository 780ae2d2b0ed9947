// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"cmp"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, encoding and sink of the process logger. Empty
// Level and Service fall back to $LOG_LEVEL and $LOG_SERVICE.
type Config struct {
	Level   string
	Format  string // "json" (default) or "console"
	Output  io.Writer
	Service string
	Version string
}

var (
	mu   sync.Mutex
	set  bool
	base zerolog.Logger
)

// Configure installs the process logger once; later calls are ignored so
// library code cannot clobber what main chose.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if !set {
		base, set = build(cfg), true
	}
}

// Reconfigure replaces the process logger, typically after the config
// file has been read. Loggers derived earlier keep their sink.
func Reconfigure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	base, set = build(cfg), true
}

func build(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cmp.Or(cfg.Level, os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).With().
		Timestamp().
		Str("service", cmp.Or(cfg.Service, os.Getenv("LOG_SERVICE"), "relay247")).
		Str("version", cfg.Version).
		Logger()
}

func logger() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !set {
		base, set = build(Config{}), true
	}
	return base
}

// Base returns the process logger.
func Base() zerolog.Logger { return logger() }

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}
