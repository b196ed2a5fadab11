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
	"sort"
	"strconv"
	"strings"
)

// htmlEscaper escapes the five HTML-significant characters.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// clozeEscaper keeps escaped blank text from closing the cloze early or
// starting a hint. Applied after textEscaper, so only entities are added.
var clozeEscaper = strings.NewReplacer(
	"}}", "}&#125;",
	"::", ":&#58;",
)

// textEscaper is htmlEscaper plus "{", so source text can never open a
// cloze of its own.
var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
	"{", "&#123;",
)

// EscapeHTML escapes text for inclusion in card markup.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// EscapeText escapes source or user text shown on a card. Unlike
// EscapeHTML it also neutralises "{", so literal cloze syntax stays inert.
func EscapeText(text string) string {
	return textEscaper.Replace(text)
}

// Segment is a run of a token's text that renders either plain or as a
// numbered blank.
type Segment struct {
	Text string

	// LocalID is the cloze number, or 0 for plain text.
	LocalID int
}

// IsBlank reports whether the segment renders as a cloze field.
func (s Segment) IsBlank() bool {
	return s.LocalID > 0
}

// SplitToken cuts one token into plain and blank segments.
//
// Description:
//
//	The token covers [tokStart, tokStart+len(text)) of the source. Every
//	candidate with c.Start < tokEnd && c.End > tokStart is clipped to the
//	token and the clipped ranges are emitted left to right. A token may meet
//	several candidates and a candidate may span several tokens; each token
//	only ever sees its own clipped part, so colour boundaries never move.
//
//	Candidates whose GlobalID is in active render as blanks numbered with
//	the mapped local id. All others render as plain text and merge with the
//	surrounding plain runs.
//
// Inputs:
//   - text: Token text.
//   - tokStart: Absolute offset of the token's first byte.
//   - candidates: All candidates, sorted by Start and non-overlapping.
//   - active: GlobalID → local cloze number for the current card.
//
// Outputs:
//   - []Segment: Concatenated Text equals text. Empty when text is empty.
func SplitToken(text string, tokStart int, candidates []BlankCandidate, active map[int]int) []Segment {
	if text == "" {
		return nil
	}
	tokEnd := tokStart + len(text)

	// Candidates are non-overlapping and sorted, so End is sorted too.
	first := sort.Search(len(candidates), func(i int) bool {
		return candidates[i].End > tokStart
	})

	var segments []Segment
	emit := func(s string, localID int) {
		if s == "" {
			return
		}
		if n := len(segments); n > 0 && localID == 0 && !segments[n-1].IsBlank() {
			segments[n-1].Text += s
			return
		}
		segments = append(segments, Segment{Text: s, LocalID: localID})
	}

	cursor := 0
	for i := first; i < len(candidates) && candidates[i].Start < tokEnd; i++ {
		c := candidates[i]
		localStart := max(c.Start, tokStart) - tokStart
		localEnd := min(c.End, tokEnd) - tokStart
		if localEnd <= localStart {
			continue
		}
		emit(text[cursor:localStart], 0)
		emit(text[localStart:localEnd], active[c.GlobalID])
		cursor = localEnd
	}
	emit(text[cursor:], 0)
	return segments
}

// RenderLine renders one source line's tokens as card markup.
//
// Description:
//
//	Token offsets are accumulated from lineStart. Each non-empty token is
//	split with SplitToken and wrapped, as a whole, in a span carrying the
//	token's colour. Plain runs are escaped with EscapeText; blank runs become
//	{{c<localID>::<escaped text>}}.
//
// Inputs:
//   - tokens: The line's colour tokens.
//   - lineStart: Absolute offset of the line's first byte.
//   - candidates: All candidates, sorted and non-overlapping.
//   - active: GlobalID → local id for the current card.
//
// Outputs:
//   - string: The line's markup, without a trailing newline.
func RenderLine(tokens []ColorToken, lineStart int, candidates []BlankCandidate, active map[int]int) string {
	var b strings.Builder
	pos := lineStart
	for _, tok := range tokens {
		start := pos
		pos += len(tok.Text)
		if tok.Text == "" {
			continue
		}

		b.WriteString(`<span style="color: `)
		b.WriteString(EscapeHTML(tok.Color))
		b.WriteString(`">`)
		for _, seg := range SplitToken(tok.Text, start, candidates, active) {
			if !seg.IsBlank() {
				b.WriteString(EscapeText(seg.Text))
				continue
			}
			b.WriteString("{{c")
			b.WriteString(strconv.Itoa(seg.LocalID))
			b.WriteString("::")
			b.WriteString(clozeEscaper.Replace(EscapeText(seg.Text)))
			b.WriteString("}}")
		}
		b.WriteString("</span>")
	}
	return b.String()
}
