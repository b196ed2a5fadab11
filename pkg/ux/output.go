// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux styles clozecode's terminal output.
package ux

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette, teal on dark.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles are the shared lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
)

// Render returns the icon in its status colour.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes CLI messages.
//
// Description:
//
//	When stdout is a terminal, messages are styled with lipgloss. Otherwise
//	Printer switches to a plain "LEVEL: text" format that scripts can parse.
//	Warnings and errors in plain mode go to the error writer.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	plain  bool
}

// NewPrinter creates a Printer. Plain mode is chosen when out is not a
// terminal.
func NewPrinter(out, errOut io.Writer) *Printer {
	return &Printer{out: out, errOut: errOut, plain: !isTerminal(out)}
}

// Stdout returns a Printer for the process's stdout and stderr.
func Stdout() *Printer {
	return NewPrinter(os.Stdout, os.Stderr)
}

// Plain reports whether styling is disabled.
func (p *Printer) Plain() bool {
	return p.plain
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Title prints a heading. Omitted in plain mode.
func (p *Printer) Title(text string) {
	if p.plain {
		return
	}
	fmt.Fprintln(p.out, Styles.Title.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	if p.plain {
		fmt.Fprintf(p.out, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	if p.plain {
		fmt.Fprintf(p.errOut, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	if p.plain {
		fmt.Fprintf(p.errOut, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	if p.plain {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Box prints content under a title inside a rounded border.
func (p *Printer) Box(title, content string) {
	if p.plain {
		fmt.Fprintf(p.out, "%s:\n%s\n", title, content)
		return
	}
	fmt.Fprintln(p.out, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// RunSummary prints the outcome of a generation run.
func (p *Printer) RunSummary(added, total int, deck, runID string) {
	if p.plain {
		fmt.Fprintf(p.out, "SUMMARY: added=%d total=%d deck=%s run_id=%s\n", added, total, deck, runID)
		return
	}
	status := IconSuccess
	style := Styles.Success
	if added < total {
		status, style = IconWarning, Styles.Warning
	}
	fmt.Fprintf(p.out, "\n%s %s %s %s  %s %s\n",
		status.Render(),
		style.Render(fmt.Sprintf("%d/%d", added, total)),
		Styles.Muted.Render("cards added to"),
		Styles.Bold.Render(deck),
		Styles.Muted.Render(string(IconArrow)),
		Styles.Muted.Render(runID),
	)
}
