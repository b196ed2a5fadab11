// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferPrinter() (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut), &out, &errOut
}

func TestPrinter_PlainWhenNotTerminal(t *testing.T) {
	p, _, _ := newBufferPrinter()
	assert.True(t, p.Plain())
}

func TestPrinter_PlainFormats(t *testing.T) {
	p, out, errOut := newBufferPrinter()

	p.Title("ignored")
	p.Success("3 cards added")
	p.Info("deck dev")
	p.Warning("highlighter unavailable")
	p.Error("backend unreachable")

	assert.Equal(t, "OK: 3 cards added\ndeck dev\n", out.String())
	assert.Equal(t, "WARN: highlighter unavailable\nERROR: backend unreachable\n", errOut.String())
}

func TestPrinter_RunSummary(t *testing.T) {
	p, out, _ := newBufferPrinter()
	p.RunSummary(2, 3, "dev", "run-1")
	assert.Equal(t, "SUMMARY: added=2 total=3 deck=dev run_id=run-1\n", out.String())
}

func TestPrinter_Box(t *testing.T) {
	p, out, _ := newBufferPrinter()
	p.Box("Card 1/2", "<div>x</div>")
	assert.True(t, strings.HasPrefix(out.String(), "Card 1/2:\n"))
	assert.Contains(t, out.String(), "<div>x</div>")
}

func TestIcon_Render(t *testing.T) {
	assert.Contains(t, IconSuccess.Render(), "✓")
	assert.Equal(t, "→", IconArrow.Render())
}
