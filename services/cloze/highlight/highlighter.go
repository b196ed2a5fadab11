// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package highlight produces per-line colour tokens with Chroma.
package highlight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AleutianAI/clozecode/services/cloze/synth"
)

const (
	// DefaultStyle is a dark theme close to the card container colours.
	DefaultStyle = "monokai"

	// DefaultCacheSize is the number of token grids kept.
	DefaultCacheSize = 128
)

// ErrUnknownLanguage indicates Chroma has no lexer for the language.
var ErrUnknownLanguage = errors.New("no lexer for language")

// Option configures a Highlighter.
type Option func(*config)

type config struct {
	style     string
	cacheSize int
	logger    *slog.Logger
}

// WithStyle selects the Chroma style by name. Unknown names fall back to
// Chroma's default style.
func WithStyle(name string) Option {
	return func(c *config) {
		if name != "" {
			c.style = name
		}
	}
}

// WithCacheSize sets the token grid cache size. Non-positive values are
// ignored.
func WithCacheSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Highlighter tokenises source with Chroma and maps token types to colours.
//
// Description:
//
//	Chroma emits a flat token stream in which one token may span several
//	lines. Highlight splits that stream on newlines into one row per source
//	line and checks every row concatenates back to its line. A row that does
//	not is replaced by a single uncoloured token, so callers can rely on the
//	row contract unconditionally.
//
//	Grids are cached by a hash of language and source. Cached grids are
//	shared between callers and must not be modified.
//
// Thread Safety:
//
//	Safe for concurrent use. The LRU cache is internally locked.
type Highlighter struct {
	style  *chroma.Style
	cache  *lru.Cache[string, [][]synth.ColorToken]
	logger *slog.Logger
}

// New creates a Highlighter.
//
// Outputs:
//   - *Highlighter: Ready for use.
//   - error: Non-nil only if the cache cannot be created.
func New(opts ...Option) (*Highlighter, error) {
	cfg := config{style: DefaultStyle, cacheSize: DefaultCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cache, err := lru.New[string, [][]synth.ColorToken](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating highlight cache: %w", err)
	}
	return &Highlighter{
		style:  styles.Get(cfg.style),
		cache:  cache,
		logger: cfg.logger,
	}, nil
}

// StyleName returns the name of the active Chroma style.
func (h *Highlighter) StyleName() string {
	return h.style.Name
}

// Highlight returns one row of colour tokens per line of source.
//
// Inputs:
//   - ctx: Checked before tokenising.
//   - source: Newline-normalised source.
//   - language: Chroma lexer name or alias, or a file name to match.
//
// Outputs:
//   - [][]synth.ColorToken: len equals strings.Count(source, "\n")+1.
//   - error: ErrUnknownLanguage, a context error, or a tokeniser error.
func (h *Highlighter) Highlight(ctx context.Context, source, language string) ([][]synth.ColorToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("highlight: %w", err)
	}

	key := cacheKey(language, source)
	if grid, ok := h.cache.Get(key); ok {
		return grid, nil
	}

	lexer := resolveLexer(language)
	if lexer == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}

	it, err := chroma.Coalesce(lexer).Tokenise(nil, source)
	if err != nil {
		return nil, fmt.Errorf("tokenising %s: %w", language, err)
	}

	lines := strings.Split(source, "\n")
	grid, repaired := h.splitLines(it.Tokens(), lines)
	if repaired > 0 {
		h.logger.Debug("highlighter rows did not match source",
			slog.String("language", language),
			slog.Int("lines", repaired))
	}

	h.cache.Add(key, grid)
	return grid, nil
}

// splitLines distributes tokens over lines and repairs mismatched rows.
func (h *Highlighter) splitLines(tokens []chroma.Token, lines []string) ([][]synth.ColorToken, int) {
	grid := make([][]synth.ColorToken, len(lines))
	row := 0
	for _, tok := range tokens {
		parts := strings.Split(tok.Value, "\n")
		color := h.colour(tok.Type)
		for i, part := range parts {
			if i > 0 {
				row++
			}
			if part == "" || row >= len(grid) {
				continue
			}
			grid[row] = append(grid[row], synth.ColorToken{Text: part, Color: color})
		}
	}

	repaired := 0
	for i, line := range lines {
		if joined(grid[i]) == line {
			continue
		}
		repaired++
		grid[i] = nil
		if line != "" {
			grid[i] = []synth.ColorToken{{Text: line, Color: synth.DefaultTextColor}}
		}
	}
	return grid, repaired
}

// colour returns the CSS colour for a token type.
func (h *Highlighter) colour(tt chroma.TokenType) string {
	entry := h.style.Get(tt)
	if !entry.Colour.IsSet() {
		return synth.DefaultTextColor
	}
	return entry.Colour.String()
}

// resolveLexer finds a lexer by name, alias or file name.
func resolveLexer(language string) chroma.Lexer {
	if l := lexers.Get(language); l != nil {
		return l
	}
	return lexers.Match(language)
}

func joined(row []synth.ColorToken) string {
	var b strings.Builder
	for _, t := range row {
		b.WriteString(t.Text)
	}
	return b.String()
}

func cacheKey(language, source string) string {
	sum := sha256.Sum256([]byte(language + "\x00" + source))
	return hex.EncodeToString(sum[:])
}
