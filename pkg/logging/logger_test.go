// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
		ok    bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"", LevelInfo, true},
		{" warn ", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"Error", LevelError, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			assert.Equal(t, tt.want, got)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidLevel)
			}
		})
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestNew_NonTerminalWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "test", Output: &buf})
	logger.Info("cards added", "count", 3)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "cards added", rec["msg"])
	assert.Equal(t, "test", rec["service"])
	assert.Equal(t, float64(3), rec["count"])
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})
	logger.With("run_id", "abc").Debug("state", "to", "done")

	assert.Contains(t, buf.String(), `"run_id":"abc"`)
	assert.Contains(t, buf.String(), `"to":"done"`)
}

func TestLogger_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Quiet: true, Output: &buf})
	logger.Error("dropped")
	assert.Empty(t, buf.String())
}

func TestLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, LogDir: dir, Service: "svc", Output: &buf})
	logger.Warn("degraded", "reason", "no lexer")
	logger.Info("skipped")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "svc_*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"degraded"`)
	assert.NotContains(t, string(data), "skipped")
	assert.Contains(t, buf.String(), "degraded")
}

func TestIsTerminal_NonFile(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".clozecode/logs"), expandPath("~/.clozecode/logs"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
}
