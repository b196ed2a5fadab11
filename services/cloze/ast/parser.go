// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Parser turns source text into a detached syntax Tree.
//
// Description:
//
//	Implementations wrap a tree-sitter grammar. The returned Tree is fully
//	converted to Go values, so callers never touch tree-sitter memory.
//
//	The Parser interface is designed to be:
//	- Context-aware: ctx is checked before and after the tree-sitter call
//	- Error-tolerant: syntax errors yield a tree with HasErrors set, not an error
//	- Fragment-friendly: partial snippets parse into whatever tree-sitter recovers
//
// Inputs:
//
//	ctx     - Context for cancellation and timeout control.
//	content - Source text, already newline-normalised. Must be valid UTF-8.
//
// Outputs:
//
//	*Tree - The converted tree. Never nil when error is nil.
//	error - ErrInvalidContent, ErrFileTooLarge, a context error, or a
//	        *ParseError when tree-sitter fails outright.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use.
type Parser interface {
	// Parse builds a Tree from content.
	Parse(ctx context.Context, content string) (*Tree, error)

	// Language returns the canonical lowercase language name.
	Language() string

	// Extensions returns the file extensions handled, with leading dot.
	Extensions() []string
}

// ParserRegistry looks parsers up by language name or file extension.
//
// Thread Safety:
//
//	Fully thread-safe. Registration takes the write lock, lookups the read lock.
type ParserRegistry struct {
	mu sync.RWMutex

	// byLanguage maps language names to parser instances.
	byLanguage map[string]Parser

	// byExtension maps file extensions to parser instances.
	byExtension map[string]Parser
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// NewDefaultRegistry returns a registry with the TypeScript, TSX and
// JavaScript parsers registered.
//
// Example:
//
//	registry := ast.NewDefaultRegistry()
//	parser, err := registry.Lookup("main.ts")
func NewDefaultRegistry(opts ...TypeScriptParserOption) *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewTypeScriptParser(opts...))
	r.Register(NewTSXParser(opts...))
	r.Register(NewJavaScriptParser(opts...))
	return r
}

// Register adds a parser under its Language() and every Extensions() entry.
//
// Existing registrations for the same keys are overwritten. A nil parser is
// ignored.
func (r *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser
	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByLanguage returns the parser registered for language.
func (r *ParserRegistry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byLanguage[language]
	return parser, ok
}

// GetByExtension returns the parser registered for ext (".ts", ".js", ...).
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byExtension[ext]
	return parser, ok
}

// Lookup resolves a language name, a bare extension, or a file path.
//
// Description:
//
//	Tries, in order: exact language name ("typescript"), extension with or
//	without the dot ("ts", ".ts"), then the extension of a path
//	("src/app.tsx"). Matching is case-insensitive.
//
// Outputs:
//
//	Parser - The matched parser.
//	error  - Wraps ErrUnsupportedLanguage when nothing matches.
func (r *ParserRegistry) Lookup(nameOrPath string) (Parser, error) {
	key := strings.ToLower(strings.TrimSpace(nameOrPath))
	if key == "" {
		return nil, fmt.Errorf("empty language: %w", ErrUnsupportedLanguage)
	}
	if p, ok := r.GetByLanguage(key); ok {
		return p, nil
	}
	ext := key
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if p, ok := r.GetByExtension(ext); ok {
		return p, nil
	}
	if p, ok := r.GetByExtension(filepath.Ext(key)); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%q: %w", nameOrPath, ErrUnsupportedLanguage)
}

// Languages returns the registered language names, sorted.
func (r *ParserRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	languages := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}
