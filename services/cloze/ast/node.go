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

import "sort"

// Node is a syntax tree node detached from the tree-sitter runtime.
//
// Description:
//
//	Node mirrors the subset of tree-sitter's node API the cloze engine needs:
//	a half-open byte span, the grammar kind, the field name it fills in its
//	parent, and parent/child links. Trees are built once by a Parser and are
//	read-only afterwards, so they can be shared freely and outlive the
//	underlying tree-sitter tree (which is closed right after conversion).
//
// Thread Safety:
//
//	Read-only after construction; safe for concurrent readers.
type Node struct {
	// Kind is the grammar node type, e.g. "identifier" or "binary_expression".
	Kind string

	// Start is the byte offset of the first byte covered by the node.
	Start int

	// End is the byte offset one past the last byte covered by the node.
	End int

	// Named is false for anonymous tokens such as "(" or "&&".
	Named bool

	// Field is the field name this node fills in its parent ("name",
	// "operator", ...), or "" when the grammar assigns none.
	Field string

	// Parent is nil for the root.
	Parent *Node

	// Children are ordered by Start.
	Children []*Node
}

// Len returns the number of bytes the node covers.
func (n *Node) Len() int {
	return n.End - n.Start
}

// Text returns the slice of source covered by the node.
//
// Returns "" when the span falls outside source, which happens only when a
// caller pairs a tree with the wrong text.
func (n *Node) Text(source string) string {
	if n.Start < 0 || n.End > len(source) || n.Start > n.End {
		return ""
	}
	return source[n.Start:n.End]
}

// ChildByField returns the first child filling the given field, or nil.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// Ancestors returns the chain of enclosing nodes, innermost first.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	return chain
}

// Walk visits n and its descendants depth-first in child order.
//
// Returning false from fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// DescendantAt returns the innermost node whose span covers offset.
//
// Description:
//
//	A node covers offset when Start <= offset < End. Zero-width nodes
//	(tree-sitter MISSING tokens) never cover anything. When offset lies in
//	whitespace between children, the innermost node whose span still
//	contains it is returned. Returns nil when n itself does not cover offset.
func (n *Node) DescendantAt(offset int) *Node {
	if offset < n.Start || offset >= n.End {
		return nil
	}
	cur := n
	for {
		children := cur.Children
		i := sort.Search(len(children), func(i int) bool {
			return children[i].End > offset
		})
		if i == len(children) || children[i].Start > offset || children[i].Len() == 0 {
			return cur
		}
		cur = children[i]
	}
}

// Tree is a parsed source file.
type Tree struct {
	// Source is the exact text the tree was built from.
	Source string

	// Language is the canonical language name of the grammar used.
	Language string

	// Root is the top-level node ("program" for the JS family).
	Root *Node

	// HasErrors is true when tree-sitter recovered from syntax errors.
	HasErrors bool
}

// NodeAt returns the innermost node covering offset, or nil.
func (t *Tree) NodeAt(offset int) *Node {
	if t == nil || t.Root == nil {
		return nil
	}
	return t.Root.DescendantAt(offset)
}
