// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-runs a callback when a single source file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the file must be quiet before the handler
// runs. Editors often write a file in several steps.
const DefaultDebounce = 300 * time.Millisecond

// ErrNotRegularFile is returned when the watched path is a directory or
// does not exist.
var ErrNotRegularFile = errors.New("watch: not a regular file")

// ChangeHandler is called with the watched path after each quiet period.
// Calls never overlap.
type ChangeHandler func(ctx context.Context, path string)

// Options configures a FileWatcher.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// FileWatcher watches one file.
//
// Description:
//
//	The parent directory is watched rather than the file itself so that
//	editors which save by writing a temp file and renaming it over the
//	original are still seen. Events for other files in the directory are
//	ignored. A burst of events collapses into one handler call.
type FileWatcher struct {
	path     string
	name     string
	handler  ChangeHandler
	debounce time.Duration
	logger   *slog.Logger
}

// NewFileWatcher validates path and returns a watcher for it.
func NewFileWatcher(path string, handler ChangeHandler, opts Options) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotRegularFile, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &FileWatcher{
		path:     abs,
		name:     filepath.Base(abs),
		handler:  handler,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string {
	return w.path
}

// Run watches until ctx is done. It returns nil on cancellation and an
// error if the watch cannot be set up or the event stream fails.
func (w *FileWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching for changes", "path", w.path, "debounce", w.debounce)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("file event", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if _, err := os.Stat(w.path); err != nil {
				// Removed and not replaced; wait for it to come back.
				w.logger.Warn("watched file missing", "path", w.path)
				continue
			}
			w.handler(ctx, w.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch event overflow", "error", err)
				continue
			}
			return fmt.Errorf("watch %s: %w", w.path, err)
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != w.name {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
