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
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

const (
	// DefaultMaxFileSize is the largest source accepted by default (2 MiB).
	// Cards embed the whole file, so anything bigger is not a useful card.
	DefaultMaxFileSize = 2 * 1024 * 1024

	// WarnFileSize triggers a warning log before parsing.
	WarnFileSize = 256 * 1024
)

// trackedFields are the grammar fields copied onto converted nodes.
var trackedFields = []string{"name", "operator"}

// TypeScriptParserOption configures a TreeSitterParser.
type TypeScriptParserOption func(*TreeSitterParser)

// WithMaxFileSize sets the maximum source size in bytes. Non-positive
// values are ignored.
//
// Example:
//
//	parser := NewTypeScriptParser(WithMaxFileSize(512 * 1024))
func WithMaxFileSize(bytes int) TypeScriptParserOption {
	return func(p *TreeSitterParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger used for size warnings.
func WithLogger(logger *slog.Logger) TypeScriptParserOption {
	return func(p *TreeSitterParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// TreeSitterParser implements Parser for one tree-sitter grammar of the
// JavaScript family.
//
// Description:
//
//	Each Parse call creates its own sitter.Parser, parses, converts the
//	resulting tree into Node values and closes the tree-sitter tree before
//	returning. No tree-sitter state outlives a call.
//
// Thread Safety:
//
//	Safe for concurrent use.
type TreeSitterParser struct {
	language    string
	extensions  []string
	grammar     func() *sitter.Language
	maxFileSize int
	logger      *slog.Logger
}

func newTreeSitterParser(language string, extensions []string, grammar func() *sitter.Language, opts []TypeScriptParserOption) *TreeSitterParser {
	p := &TreeSitterParser{
		language:    language,
		extensions:  extensions,
		grammar:     grammar,
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTypeScriptParser creates a parser for .ts, .mts and .cts sources.
func NewTypeScriptParser(opts ...TypeScriptParserOption) *TreeSitterParser {
	return newTreeSitterParser("typescript", []string{".ts", ".mts", ".cts"}, typescript.GetLanguage, opts)
}

// NewTSXParser creates a parser for .tsx sources.
func NewTSXParser(opts ...TypeScriptParserOption) *TreeSitterParser {
	return newTreeSitterParser("tsx", []string{".tsx"}, tsx.GetLanguage, opts)
}

// NewJavaScriptParser creates a parser for .js, .jsx, .mjs and .cjs sources.
func NewJavaScriptParser(opts ...TypeScriptParserOption) *TreeSitterParser {
	return newTreeSitterParser("javascript", []string{".js", ".jsx", ".mjs", ".cjs"}, javascript.GetLanguage, opts)
}

// Language returns the canonical language name.
func (p *TreeSitterParser) Language() string {
	return p.language
}

// Extensions returns the file extensions this parser handles.
func (p *TreeSitterParser) Extensions() []string {
	return p.extensions
}

// Parse parses content and returns a detached Tree.
//
// Description:
//
//	Validates size and encoding, runs tree-sitter, then converts the tree.
//	Syntax errors do not fail the call: a code fragment such as a lone
//	method body still yields a tree, flagged with HasErrors.
//
// Inputs:
//   - ctx: Checked before and after tree-sitter. The tree-sitter call itself
//     honours cancellation through ParseCtx.
//   - content: Newline-normalised source.
//
// Outputs:
//   - *Tree: Never nil on success.
//   - error: ErrFileTooLarge, ErrInvalidContent, context errors, or *ParseError.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (p *TreeSitterParser) Parse(ctx context.Context, content string) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if len(content) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if len(content) > WarnFileSize {
		p.logger.Warn("parsing large source",
			slog.String("language", p.language),
			slog.Int("size_bytes", len(content)))
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	ctx, span := startParseSpan(ctx, p.language, len(content))
	defer span.End()
	start := time.Now()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.grammar())

	src := []byte(content)
	tsTree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		recordParseMetrics(ctx, p.language, time.Since(start), 0, false)
		return nil, newParseError(p.language, "tree-sitter parse failed", err)
	}
	defer tsTree.Close()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, p.language, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tsTree.RootNode()
	if root == nil {
		recordParseMetrics(ctx, p.language, time.Since(start), 0, false)
		return nil, newParseError(p.language, "tree-sitter returned nil root node", ErrParseFailed)
	}

	count := 0
	tree := &Tree{
		Source:    content,
		Language:  p.language,
		Root:      convertNode(root, nil, &count),
		HasErrors: root.HasError(),
	}

	recordParseMetrics(ctx, p.language, time.Since(start), count, true)
	return tree, nil
}

// convertNode copies a tree-sitter node and its subtree into Node values.
func convertNode(sn *sitter.Node, parent *Node, count *int) *Node {
	*count++
	n := &Node{
		Kind:   sn.Type(),
		Start:  int(sn.StartByte()),
		End:    int(sn.EndByte()),
		Named:  sn.IsNamed(),
		Parent: parent,
	}

	childCount := int(sn.ChildCount())
	if childCount == 0 {
		return n
	}

	fields := make(map[[2]uint32]string, len(trackedFields))
	for _, field := range trackedFields {
		if fc := sn.ChildByFieldName(field); fc != nil {
			fields[[2]uint32{fc.StartByte(), fc.EndByte()}] = field
		}
	}

	n.Children = make([]*Node, 0, childCount)
	for i := 0; i < childCount; i++ {
		sc := sn.Child(i)
		if sc == nil {
			continue
		}
		c := convertNode(sc, n, count)
		if field, ok := fields[[2]uint32{sc.StartByte(), sc.EndByte()}]; ok {
			c.Field = field
			delete(fields, [2]uint32{sc.StartByte(), sc.EndByte()})
		}
		n.Children = append(n.Children, c)
	}
	return n
}
