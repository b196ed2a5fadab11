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
	"strings"
	"unicode/utf8"

	"github.com/AleutianAI/clozecode/services/cloze/ast"
)

// scopeKinds are the structural nodes that contribute a breadcrumb label.
var scopeKinds = map[string]bool{
	"class":                          true,
	"class_declaration":              true,
	"abstract_class_declaration":     true,
	"function_declaration":           true,
	"generator_function_declaration": true,
	"method_definition":              true,
	"interface_declaration":          true,
}

// maxLabelRunes bounds fallback labels taken from a node's first line.
const maxLabelRunes = 40

// ScopeResolver derives breadcrumbs for source lines.
//
// Description:
//
//	Built once per document. Resolve locates the innermost node at a line's
//	first non-blank column and walks outwards collecting class, function,
//	method and interface nodes.
//
// Thread Safety:
//
//	Read-only after construction; safe for concurrent use.
type ScopeResolver struct {
	tree  *ast.Tree
	lines *lineIndex
	depth int
}

// NewScopeResolver creates a resolver over tree.
//
// Inputs:
//   - tree: Parsed source, may be nil (every line then resolves to absent).
//   - depth: Keep only the innermost depth labels. 0 means unlimited.
func NewScopeResolver(tree *ast.Tree, depth int) *ScopeResolver {
	r := &ScopeResolver{tree: tree, depth: max(depth, 0)}
	if tree != nil {
		r.lines = newLineIndex(tree.Source)
	}
	return r
}

// Resolve returns the breadcrumb for a 0-based line.
//
// Description:
//
//	Returns false when the line is out of range, sits outside every named
//	scope, or when lookup fails for any reason. Resolution is cosmetic, so a
//	panic while walking the tree is recovered and reported as absent.
//
// Outputs:
//   - ScopeBreadcrumb: Labels outermost first.
//   - bool: True when a breadcrumb was found.
func (r *ScopeResolver) Resolve(line int) (crumb ScopeBreadcrumb, ok bool) {
	defer func() {
		if recover() != nil {
			crumb, ok = nil, false
		}
	}()

	if r == nil || r.tree == nil || r.tree.Root == nil || r.lines == nil {
		return nil, false
	}
	offset, found := r.lines.firstColumn(line)
	if !found {
		return nil, false
	}
	node := r.tree.NodeAt(offset)
	if node == nil {
		return nil, false
	}

	// Innermost first; the node itself counts when it is a scope.
	var labels []string
	for _, n := range append([]*ast.Node{node}, node.Ancestors()...) {
		if n.Named && scopeKinds[n.Kind] {
			labels = append(labels, scopeLabel(n, r.tree.Source))
		}
	}
	if len(labels) == 0 {
		return nil, false
	}
	if r.depth > 0 && len(labels) > r.depth {
		labels = labels[:r.depth]
	}

	crumb = make(ScopeBreadcrumb, len(labels))
	for i, label := range labels {
		crumb[len(labels)-1-i] = label
	}
	return crumb, true
}

// scopeLabel returns the declared name of n, or a truncated first line.
func scopeLabel(n *ast.Node, source string) string {
	if name := n.ChildByField("name"); name != nil {
		if text := name.Text(source); text != "" {
			return text
		}
	}
	text := n.Text(source)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= maxLabelRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxLabelRunes])) + "…"
}
