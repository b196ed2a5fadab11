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

import "testing"

// node builds a named node and links its children.
func node(kind string, start, end int, children ...*Node) *Node {
	n := &Node{Kind: kind, Start: start, End: end, Named: true, Children: children}
	for _, c := range children {
		c.Parent = n
	}
	return n
}

// "let ab = cd;" with a simplified shape.
func sampleTree() *Tree {
	name := node("identifier", 4, 6)
	name.Field = "name"
	value := node("identifier", 9, 11)
	decl := node("variable_declarator", 4, 11, name, value)
	stmt := node("lexical_declaration", 0, 12, decl)
	return &Tree{Source: "let ab = cd;", Language: "typescript", Root: node("program", 0, 12, stmt)}
}

func TestNode_DescendantAt(t *testing.T) {
	tree := sampleTree()

	tests := []struct {
		name   string
		offset int
		want   string
	}{
		{"keyword area", 0, "lexical_declaration"},
		{"identifier start", 4, "identifier"},
		{"identifier last byte", 5, "identifier"},
		{"between children", 7, "variable_declarator"},
		{"semicolon", 11, "lexical_declaration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tree.NodeAt(tt.offset)
			if got == nil {
				t.Fatalf("expected node at %d", tt.offset)
			}
			if got.Kind != tt.want {
				t.Errorf("offset %d: expected %s, got %s", tt.offset, tt.want, got.Kind)
			}
		})
	}

	if got := tree.NodeAt(12); got != nil {
		t.Errorf("offset past end should be nil, got %s", got.Kind)
	}
	if got := tree.NodeAt(-1); got != nil {
		t.Errorf("negative offset should be nil, got %s", got.Kind)
	}
}

func TestNode_DescendantAt_SkipsZeroWidth(t *testing.T) {
	missing := node("identifier", 3, 3)
	root := node("program", 0, 6, missing, node("number", 3, 6))
	if got := root.DescendantAt(3); got == nil || got.Kind != "number" {
		t.Errorf("expected number, got %+v", got)
	}
}

func TestNode_Walk_SkipChildren(t *testing.T) {
	tree := sampleTree()
	var kinds []string
	tree.Root.Walk(func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return n.Kind != "variable_declarator"
	})
	want := []string{"program", "lexical_declaration", "variable_declarator"}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
}

func TestNode_AncestorsAndField(t *testing.T) {
	tree := sampleTree()
	id := tree.NodeAt(4)
	chain := id.Ancestors()
	if len(chain) != 3 || chain[0].Kind != "variable_declarator" || chain[2].Kind != "program" {
		t.Errorf("unexpected ancestor chain: %v", chain)
	}
	if got := chain[0].ChildByField("name"); got != id {
		t.Error("expected ChildByField to return the name identifier")
	}
	if chain[0].ChildByField("value") != nil {
		t.Error("expected nil for untracked field")
	}
	if got := id.Text(tree.Source); got != "ab" {
		t.Errorf("expected ab, got %q", got)
	}
	if got := id.Text("x"); got != "" {
		t.Errorf("expected empty text for mismatched source, got %q", got)
	}
}
