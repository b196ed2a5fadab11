// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietOptions(debounce time.Duration) Options {
	return Options{Debounce: debounce, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewFileWatcher_RejectsMissingAndDirs(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileWatcher(filepath.Join(dir, "absent.ts"), nil, Options{})
	assert.ErrorIs(t, err, ErrNotRegularFile)

	_, err = NewFileWatcher(dir, nil, Options{})
	assert.ErrorIs(t, err, ErrNotRegularFile)
}

func TestNewFileWatcher_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.ts")
	writeFile(t, path, "let a = 1;")

	w, err := NewFileWatcher(path, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.True(t, filepath.IsAbs(w.Path()))
}

func TestFileWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ts")
	other := filepath.Join(dir, "b.ts")
	writeFile(t, path, "let a = 1;")

	var calls atomic.Int32
	w, err := NewFileWatcher(path, func(_ context.Context, got string) {
		assert.Equal(t, path, got)
		calls.Add(1)
	}, quietOptions(150*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(200 * time.Millisecond)

	writeFile(t, other, "unrelated")
	for i := 0; i < 3; i++ {
		writeFile(t, path, "let a = 2;")
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFileWatcher_SeesRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ts")
	writeFile(t, path, "let a = 1;")

	var calls atomic.Int32
	w, err := NewFileWatcher(path, func(context.Context, string) { calls.Add(1) }, quietOptions(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(200 * time.Millisecond)

	tmp := filepath.Join(dir, ".a.ts.swp")
	writeFile(t, tmp, "let a = 3;")
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}
