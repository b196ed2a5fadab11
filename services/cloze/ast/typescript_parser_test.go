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
	"errors"
	"strings"
	"sync"
	"testing"
)

const classSource = `class UserService {
    private cache = new Map();

    getUser(id: string) {
        return this.cache.get(id);
    }
}
`

func findKind(root *Node, kind string) *Node {
	var found *Node
	root.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Kind == kind {
			found = n
			return false
		}
		return true
	})
	return found
}

func TestTypeScriptParser_Parse_EmptyFile(t *testing.T) {
	parser := NewTypeScriptParser()
	tree, err := parser.Parse(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Root == nil {
		t.Fatal("expected root node")
	}
	if tree.Root.Kind != "program" {
		t.Errorf("expected program root, got %q", tree.Root.Kind)
	}
	if tree.Language != "typescript" {
		t.Errorf("expected language typescript, got %q", tree.Language)
	}
}

func TestTypeScriptParser_Parse_LexicalDeclaration(t *testing.T) {
	src := "const x = 1;"
	tree, err := NewTypeScriptParser().Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.HasErrors {
		t.Error("expected clean parse")
	}

	declarator := findKind(tree.Root, "variable_declarator")
	if declarator == nil {
		t.Fatal("expected variable_declarator")
	}
	name := declarator.ChildByField("name")
	if name == nil {
		t.Fatal("expected name field on declarator")
	}
	if got := name.Text(src); got != "x" {
		t.Errorf("expected name x, got %q", got)
	}
	if name.Kind != "identifier" || !name.Named {
		t.Errorf("expected named identifier, got %q named=%v", name.Kind, name.Named)
	}
	if name.Parent != declarator {
		t.Error("expected parent link to declarator")
	}

	number := findKind(tree.Root, "number")
	if number == nil || number.Text(src) != "1" {
		t.Fatalf("expected number 1, got %+v", number)
	}
}

func TestTypeScriptParser_Parse_OperatorField(t *testing.T) {
	src := "if (a && !b) { c += 1; }"
	tree, err := NewTypeScriptParser().Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		parent string
		want   string
	}{
		{"binary_expression", "&&"},
		{"unary_expression", "!"},
		{"augmented_assignment_expression", "+="},
	}
	for _, tt := range tests {
		t.Run(tt.parent, func(t *testing.T) {
			n := findKind(tree.Root, tt.parent)
			if n == nil {
				t.Fatalf("expected %s", tt.parent)
			}
			op := n.ChildByField("operator")
			if op == nil {
				t.Fatalf("expected operator field on %s", tt.parent)
			}
			if got := op.Text(src); got != tt.want {
				t.Errorf("expected operator %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTypeScriptParser_Parse_ClassName(t *testing.T) {
	tree, err := NewTypeScriptParser().Parse(context.Background(), classSource)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	class := findKind(tree.Root, "class_declaration")
	if class == nil {
		t.Fatal("expected class_declaration")
	}
	if got := class.ChildByField("name").Text(classSource); got != "UserService" {
		t.Errorf("expected UserService, got %q", got)
	}
	method := findKind(tree.Root, "method_definition")
	if method == nil {
		t.Fatal("expected method_definition")
	}
	if got := method.ChildByField("name").Text(classSource); got != "getUser" {
		t.Errorf("expected getUser, got %q", got)
	}
}

func TestTypeScriptParser_Parse_SyntaxErrorYieldsTree(t *testing.T) {
	tree, err := NewTypeScriptParser().Parse(context.Background(), "function broken( {")
	if err != nil {
		t.Fatalf("syntax errors must not fail the parse: %v", err)
	}
	if !tree.HasErrors {
		t.Error("expected HasErrors")
	}
}

func TestTypeScriptParser_Parse_FileTooLarge(t *testing.T) {
	parser := NewTypeScriptParser(WithMaxFileSize(16))
	_, err := parser.Parse(context.Background(), strings.Repeat("a", 17))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestTypeScriptParser_Parse_InvalidUTF8(t *testing.T) {
	_, err := NewTypeScriptParser().Parse(context.Background(), "const s = '\xff';")
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}
}

func TestTypeScriptParser_Parse_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTypeScriptParser().Parse(ctx, "const x = 1;")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTypeScriptParser_Parse_Concurrent(t *testing.T) {
	parser := NewTypeScriptParser()
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := parser.Parse(context.Background(), classSource); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent parse failed: %v", err)
	}
}

func TestJavaScriptParser_Parse(t *testing.T) {
	src := "function add(a, b) { return a + b; }"
	tree, err := NewJavaScriptParser().Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fn := findKind(tree.Root, "function_declaration")
	if fn == nil {
		t.Fatal("expected function_declaration")
	}
	if got := fn.ChildByField("name").Text(src); got != "add" {
		t.Errorf("expected add, got %q", got)
	}
}
