// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for clozecode.
//
// Logs go to stderr by default and, optionally, to a daily JSON file:
//
//	┌──────────────────────────────────────────┐
//	│                 Logger                   │
//	│  ┌─────────────────┐  ┌───────────────┐  │
//	│  │ stderr          │  │ log file      │  │
//	│  │ text or JSON    │  │ JSON, opt-in  │  │
//	│  └─────────────────┘  └───────────────┘  │
//	└──────────────────────────────────────────┘
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{Level: logging.LevelInfo, Service: "cli"})
//	defer logger.Close()
//	logger.Info("cards added", "deck", deck, "count", n)
//
// Components that take a *slog.Logger receive logger.Slog().
//
// # Format Selection
//
// Stderr is text for a terminal and JSON otherwise, unless Config.JSON
// forces JSON. File logs are always JSON.
//
// # Thread Safety
//
// Logger is safe for concurrent use.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Level is a log severity. Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug traces execution: state transitions, per-call timings.
	LevelDebug Level = iota

	// LevelInfo records normal operation: run started, cards added.
	LevelInfo

	// LevelWarn records degraded but recoverable situations.
	LevelWarn

	// LevelError records failed operations.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR" or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ErrInvalidLevel is returned by ParseLevel for unknown names.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel converts a case-insensitive level name to a Level.
//
// Accepts "debug", "info", "warn", "warning" and "error". An empty string
// yields LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures a Logger. The zero value logs Info and above to
// stderr.
type Config struct {
	// Level is the minimum level written.
	Level Level

	// LogDir enables a JSON log file "{Service}_{YYYY-MM-DD}.log" in this
	// directory. "~" expands to the home directory. Empty disables it.
	LogDir string

	// Service is attached to every record as "service".
	Service string

	// JSON forces JSON on stderr even for a terminal.
	JSON bool

	// Quiet disables stderr output.
	Quiet bool

	// Output replaces stderr. Used by tests.
	Output io.Writer
}

// Logger wraps slog with optional file output.
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     *sync.Mutex
}

// New creates a Logger.
//
// Description:
//
//	Builds one handler per destination and fans records out to all of
//	them. A log directory that cannot be created or a file that cannot be
//	opened is reported once on stderr and skipped; logging itself never
//	fails.
//
// Inputs:
//   - config: See Config.
//
// Outputs:
//   - *Logger: Must be closed when LogDir is set.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	var handlers []slog.Handler
	if !config.Quiet {
		if config.JSON || !IsTerminal(out) {
			handlers = append(handlers, slog.NewJSONHandler(out, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(out, opts))
		}
	}

	logger := &Logger{config: config, mu: &sync.Mutex{}}

	if config.LogDir != "" {
		file, err := openLogFile(config.LogDir, config.Service)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: file output disabled: %v\n", err)
		} else {
			logger.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Default returns an Info-level stderr logger for service "clozecode".
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "clozecode"})
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func openLogFile(dir, service string) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if service == "" {
		service = "clozecode"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// Debug logs at Debug level.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at Info level.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at Error level.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a child logger carrying extra attributes. The child shares
// the parent's file; closing either closes it for both.
//
// Example:
//
//	runLogger := logger.With("run_id", runID)
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
		file:   l.file,
		mu:     l.mu,
	}
}

// Slog returns the underlying *slog.Logger for injection into services.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close syncs and closes the log file, if any. Safe to call twice.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	syncErr := l.file.Sync()
	closeErr := l.file.Close()
	l.file = nil
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return fmt.Errorf("close log file: %w", closeErr)
	}
	if syncErr != nil && !errors.Is(syncErr, os.ErrClosed) {
		return fmt.Errorf("sync log file: %w", syncErr)
	}
	return nil
}

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// expandPath expands a leading "~" to the home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
