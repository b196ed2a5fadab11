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
	"strconv"
	"strings"
)

// DefaultTextColor is used for tokens the highlighter left uncoloured.
const DefaultTextColor = "#d4d4d4"

const (
	containerOpen = `<div style="background-color: #1e1e1e; color: #d4d4d4; padding: 20px; ` +
		`font-family: Consolas, 'Courier New', monospace; font-size: 14px; line-height: 1.5; ` +
		`border-radius: 5px; text-align: left;"><pre style="margin: 0; white-space: pre-wrap;">`
	containerClose = `</pre></div>`

	headerOpen  = `<div style="margin-bottom: 10px; font-family: Consolas, 'Courier New', monospace; text-align: left;">`
	headerClose = `</div>`

	titleStyle  = `font-size: 16px; font-weight: bold;`
	metaStyle   = `font-size: 12px; color: #888888;`
	scopeStyle  = `font-size: 12px; color: #4ec9b0;`
	elisionLine = `<span style="color: #808080">…</span>`
)

// CardHeader is the descriptive block shown above the code.
type CardHeader struct {
	Title string
	Deck  string
	Tags  []string
}

// DocumentConfig carries the per-run rendering settings.
type DocumentConfig struct {
	Header CardHeader

	// ContextLines is FullFileContext or a window size around the batch.
	ContextLines int
}

// Document is everything derived once per source and shared by its cards.
//
// Description:
//
//	Holds the immutable source, the sorted candidates, the per-line colour
//	tokens and the scope resolver. Token rows that do not concatenate to
//	their line are replaced by one uncoloured token, so rendering never
//	loses or duplicates source text.
//
// Thread Safety:
//
//	Read-only after construction; RenderCard may be called concurrently.
type Document struct {
	source     string
	lines      *lineIndex
	tokens     [][]ColorToken
	candidates []BlankCandidate
	scope      *ScopeResolver
	cfg        DocumentConfig
	repaired   int
}

// NewDocument assembles a Document.
//
// Inputs:
//   - source: Newline-normalised source text.
//   - candidates: Output of ExtractCandidates for source.
//   - tokens: Per-line colour tokens, may be nil.
//   - scope: Breadcrumb resolver, may be nil.
//   - cfg: Header and context settings.
//
// Outputs:
//   - *Document: Ready to render.
func NewDocument(source string, candidates []BlankCandidate, tokens [][]ColorToken, scope *ScopeResolver, cfg DocumentConfig) *Document {
	lines := newLineIndex(source)
	grid, repaired := alignTokens(lines, tokens)
	return &Document{
		source:     source,
		lines:      lines,
		tokens:     grid,
		candidates: candidates,
		scope:      scope,
		cfg:        cfg,
		repaired:   repaired,
	}
}

// Candidates returns the document's blank candidates.
func (d *Document) Candidates() []BlankCandidate {
	return d.candidates
}

// LineCount returns the number of source lines.
func (d *Document) LineCount() int {
	return d.lines.count()
}

// RepairedLines returns how many token rows were replaced on construction.
func (d *Document) RepairedLines() int {
	return d.repaired
}

// alignTokens returns a grid with exactly one valid row per source line.
func alignTokens(lines *lineIndex, tokens [][]ColorToken) ([][]ColorToken, int) {
	grid := make([][]ColorToken, lines.count())
	repaired := 0
	for i := range grid {
		text := lines.text(i)
		if i < len(tokens) && rowMatches(tokens[i], text) {
			grid[i] = tokens[i]
			continue
		}
		repaired++
		if text != "" {
			grid[i] = []ColorToken{{Text: text, Color: DefaultTextColor}}
		}
	}
	return grid, repaired
}

func rowMatches(row []ColorToken, text string) bool {
	pos := 0
	for _, tok := range row {
		if !strings.HasPrefix(text[pos:], tok.Text) {
			return false
		}
		pos += len(tok.Text)
	}
	return pos == len(text)
}

// RenderCard renders the card for one batch.
//
// Description:
//
//	Produces the header (title with an "(i/n)" indicator when total > 1,
//	deck and tags, then the breadcrumb of the line holding the batch's first
//	blank) followed by the code container. Every line in the context window
//	is rendered through RenderLine with only this batch's blanks active;
//	other candidates show as revealed text. Output depends only on the
//	document and the batch.
//
// Inputs:
//   - batch: One element of BuildBatches over d.Candidates().
//   - total: Number of cards in the run.
//
// Outputs:
//   - Card: Text holds the complete note markup.
func (d *Document) RenderCard(batch Batch, total int) Card {
	var b strings.Builder
	d.writeHeader(&b, batch, total)

	from, to := d.window(batch)
	b.WriteString(containerOpen)
	if from > 0 {
		b.WriteString(elisionLine)
		b.WriteByte('\n')
	}
	active := batch.Active()
	for line := from; line <= to; line++ {
		if line > from {
			b.WriteByte('\n')
		}
		b.WriteString(RenderLine(d.tokens[line], d.lines.start(line), d.candidates, active))
	}
	if to < d.lines.count()-1 {
		b.WriteByte('\n')
		b.WriteString(elisionLine)
	}
	b.WriteString(containerClose)

	return Card{
		Index:  batch.Index,
		Total:  total,
		Text:   b.String(),
		Blanks: batch.Size(),
	}
}

func (d *Document) writeHeader(b *strings.Builder, batch Batch, total int) {
	h := d.cfg.Header
	b.WriteString(headerOpen)

	title := h.Title
	if total > 1 {
		if title == "" {
			title = "Card"
		}
		title += " (" + strconv.Itoa(batch.Index+1) + "/" + strconv.Itoa(total) + ")"
	}
	if title != "" {
		writeDiv(b, titleStyle, EscapeText(title))
	}

	var meta []string
	if h.Deck != "" {
		meta = append(meta, "Deck: "+EscapeText(h.Deck))
	}
	if len(h.Tags) > 0 {
		meta = append(meta, "Tags: "+EscapeText(strings.Join(h.Tags, ", ")))
	}
	if len(meta) > 0 {
		writeDiv(b, metaStyle, strings.Join(meta, " | "))
	}

	if batch.Size() > 0 {
		line := d.lines.lineOf(batch.Candidates[0].Start)
		if crumb, ok := d.scope.Resolve(line); ok {
			writeDiv(b, scopeStyle, EscapeText(crumb.String()))
		}
	}
	b.WriteString(headerClose)
}

func writeDiv(b *strings.Builder, style, content string) {
	b.WriteString(`<div style="`)
	b.WriteString(style)
	b.WriteString(`">`)
	b.WriteString(content)
	b.WriteString(`</div>`)
}

// window returns the inclusive line range rendered for batch.
func (d *Document) window(batch Batch) (int, int) {
	last := d.lines.count() - 1
	n := d.cfg.ContextLines
	if n < 0 || batch.Size() == 0 {
		return 0, last
	}
	first := d.lines.lineOf(batch.Candidates[0].Start)
	end := d.lines.lineOf(batch.Candidates[batch.Size()-1].End - 1)
	return max(0, first-n), min(last, end+n)
}
