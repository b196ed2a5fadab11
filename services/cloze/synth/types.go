// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package synth turns a source file into cloze flashcards.
//
// # Pipeline
//
// One synthesis run flows leaf-first through these steps:
//
//	┌──────────────┐   ┌──────────────┐   ┌──────────┐   ┌──────────────┐
//	│ Extract      │──▶│ BuildBatches │──▶│ Render   │──▶│ Engine       │
//	│ (tree spans) │   │ (≤ N blanks) │   │ per card │   │ (dispatch)   │
//	└──────────────┘   └──────────────┘   └────┬─────┘   └──────────────┘
//	                                           │
//	                    highlighter tokens ────┤  RenderLine (reconcile)
//	                    scope resolver     ────┘  breadcrumb
//
// All offsets are byte offsets into the newline-normalised source. The
// source string is never mutated; rendering walks colour tokens and slices
// substrings of the original text.
package synth

import (
	"context"
	"strings"

	"github.com/AleutianAI/clozecode/services/cloze/ast"
)

// SourceSpan is a half-open byte range [Start, End) into the source.
type SourceSpan struct {
	Start int
	End   int
}

// Len returns the number of bytes covered.
func (s SourceSpan) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether s and o share at least one byte.
func (s SourceSpan) Overlaps(o SourceSpan) bool {
	return s.Start < o.End && s.End > o.Start
}

// BlankCandidate is a span chosen to become a cloze blank.
//
// The covered text is derived from the source on demand rather than stored,
// so it can never drift from the offsets.
type BlankCandidate struct {
	SourceSpan

	// GlobalID is 1-based and strictly increasing with Start.
	GlobalID int
}

// Text returns the source text the candidate covers.
func (c BlankCandidate) Text(source string) string {
	if c.Start < 0 || c.End > len(source) || c.Start >= c.End {
		return ""
	}
	return source[c.Start:c.End]
}

// ColorToken is one highlighter token on a single line.
//
// A line's tokens concatenate to exactly that line's text, newline excluded.
// Color is a CSS colour such as "#d4d4d4".
type ColorToken struct {
	Text  string
	Color string
}

// ScopeBreadcrumb is the chain of enclosing named scopes, outermost first.
type ScopeBreadcrumb []string

// String joins the labels with " > ".
func (b ScopeBreadcrumb) String() string {
	return strings.Join(b, breadcrumbSeparator)
}

const breadcrumbSeparator = " > "

// Highlighter produces the per-line colour token grid for a source.
//
// Implementations must return one slice per source line (split on "\n"),
// each concatenating to that line's text.
type Highlighter interface {
	Highlight(ctx context.Context, source, language string) ([][]ColorToken, error)
}

// ParserLookup resolves a language name or file path to a parser.
type ParserLookup interface {
	Lookup(nameOrPath string) (ast.Parser, error)
}

// Card is one rendered note ready for dispatch.
type Card struct {
	// Index is the 0-based batch index.
	Index int

	// Total is the number of cards produced by the run.
	Total int

	// Text is the full markup placed in the note's Text field.
	Text string

	// Blanks is the number of active cloze fields on the card.
	Blanks int
}

// Submission is one request to turn a source file into cards.
type Submission struct {
	// Source is the raw source text. Line endings are normalised internally.
	Source string

	// Title is shown in each card header. Optional.
	Title string

	// Deck is the destination deck name.
	Deck string

	// Tags are attached to every note.
	Tags []string

	// Language is a language name or file path used to pick the grammar.
	// Empty means Options.Language.
	Language string
}

// Result is the outcome of Engine.GenerateCards. It is always returned,
// including on failure.
type Result struct {
	Success    bool   `json:"success"`
	AddedCount int    `json:"addedCount"`
	TotalCards int    `json:"totalCards"`
	Message    string `json:"message,omitempty"`
	RunID      string `json:"runId,omitempty"`
}

// normalizeNewlines unifies "\r\n" and lone "\r" into "\n".
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
