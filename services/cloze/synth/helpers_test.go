// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package synth

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/clozecode/services/cloze/ast"
)

var (
	spanTagPattern  = regexp.MustCompile(`<span style="color: [^"]*">|</span>`)
	clozePattern    = regexp.MustCompile(`\{\{c\d+::(.*?)\}\}`)
	wordPattern     = regexp.MustCompile(`\w+|\s+|[^\w\s]`)
	activeIDPattern = regexp.MustCompile(`\{\{c(\d+)::`)
	wordStart       = regexp.MustCompile(`^\w`)
)

// parseTS parses src with the real TypeScript grammar.
func parseTS(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := ast.NewTypeScriptParser().Parse(context.Background(), src)
	require.NoError(t, err)
	return tree
}

// candidateTexts returns the source text of each candidate.
func candidateTexts(src string, candidates []BlankCandidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Text(src)
	}
	return out
}

// stripMarkup turns one rendered line back into its source text.
func stripMarkup(line string) string {
	line = spanTagPattern.ReplaceAllString(line, "")
	line = clozePattern.ReplaceAllString(line, "$1")
	return html.UnescapeString(line)
}

// wordHighlighter splits each line into word, whitespace and punctuation
// tokens, colouring words and punctuation differently.
type wordHighlighter struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (h *wordHighlighter) Highlight(_ context.Context, source, _ string) ([][]ColorToken, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	lines := strings.Split(source, "\n")
	grid := make([][]ColorToken, len(lines))
	for i, line := range lines {
		for _, part := range wordPattern.FindAllString(line, -1) {
			color := "#9cdcfe"
			if !wordStart.MatchString(part) {
				color = "#d4d4d4"
			}
			grid[i] = append(grid[i], ColorToken{Text: part, Color: color})
		}
	}
	return grid, nil
}

type addedNote struct {
	Deck  string
	Model string
	Text  string
	Tags  []string
}

// fakeBackend records every call and fails on demand.
type fakeBackend struct {
	mu sync.Mutex

	versionErr  error
	deckErr     error
	ensureErr   error
	addErrAt    map[int]error
	panicOnAdd  bool
	afterAdd    func()
	calls       []string
	notes       []addedNote
	addAttempts int
}

func (b *fakeBackend) record(action string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, action)
}

func (b *fakeBackend) Version(context.Context) (int, error) {
	b.record("version")
	if b.versionErr != nil {
		return 0, b.versionErr
	}
	return 6, nil
}

func (b *fakeBackend) CreateDeck(_ context.Context, _ string) error {
	b.record("createDeck")
	return b.deckErr
}

func (b *fakeBackend) EnsureNoteType(_ context.Context, _ string) (bool, error) {
	b.record("ensureNoteType")
	return false, b.ensureErr
}

func (b *fakeBackend) AddNote(_ context.Context, deck, model, text string, tags []string) (int64, error) {
	b.record("addNote")
	if b.panicOnAdd {
		panic("backend exploded")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	attempt := b.addAttempts
	b.addAttempts++
	if err := b.addErrAt[attempt]; err != nil {
		return 0, err
	}
	b.notes = append(b.notes, addedNote{Deck: deck, Model: model, Text: text, Tags: tags})
	if b.afterAdd != nil {
		b.afterAdd()
	}
	return int64(1000 + attempt), nil
}

func (b *fakeBackend) count(action string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == action {
			n++
		}
	}
	return n
}

var errFake = errors.New("fake failure")
