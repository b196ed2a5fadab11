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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/clozecode/services/cloze/ast"
)

func TestExtractCandidates_ConstDeclaration(t *testing.T) {
	src := "const x = 1;"
	candidates := ExtractCandidates(parseTS(t, src))

	require.Len(t, candidates, 2)
	assert.Equal(t, []string{"x", "1"}, candidateTexts(src, candidates))
	assert.Equal(t, BlankCandidate{SourceSpan: SourceSpan{Start: 6, End: 7}, GlobalID: 1}, candidates[0])
	assert.Equal(t, BlankCandidate{SourceSpan: SourceSpan{Start: 10, End: 11}, GlobalID: 2}, candidates[1])
}

func TestExtractCandidates_ImportExcludedPerOccurrence(t *testing.T) {
	src := "import {a} from 'm'; a();"
	candidates := ExtractCandidates(parseTS(t, src))

	require.Len(t, candidates, 1)
	assert.Equal(t, 21, candidates[0].Start)
	assert.Equal(t, "a", candidates[0].Text(src))
}

func TestExtractCandidates_Kinds(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "literals",
			src:  "let t = true, f = false, s = 'hi', n = 42;",
			want: []string{"t", "true", "f", "false", "s", "'hi'", "n", "42"},
		},
		{
			name: "critical operators only",
			src:  "x = a + b % c;",
			want: []string{"x", "a", "b", "%", "c"},
		},
		{
			name: "logical and negation",
			src:  "if (a && !b) { c += 1; }",
			want: []string{"a", "&&", "!", "b", "c", "+=", "1"},
		},
		{
			name: "comparisons",
			src:  "ok = a === b || c >= d;",
			want: []string{"ok", "a", "===", "b", "||", "c", ">=", "d"},
		},
		{
			name: "plain assignment is not blanked",
			src:  "y = z;",
			want: []string{"y", "z"},
		},
		{
			name: "property access",
			src:  "this.cache.get(id);",
			want: []string{"cache", "get", "id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := ExtractCandidates(parseTS(t, tt.src))
			assert.Equal(t, tt.want, candidateTexts(tt.src, candidates))
		})
	}
}

func TestExtractCandidates_OrderedAndDisjoint(t *testing.T) {
	src := `class Counter {
    private count = 0;

    increment(step: number): boolean {
        if (step <= 0 || !Number.isFinite(step)) {
            return false;
        }
        this.count += step;
        return this.count % 2 === 0;
    }
}
`
	candidates := ExtractCandidates(parseTS(t, src))
	require.NotEmpty(t, candidates)

	for i, c := range candidates {
		assert.Equal(t, i+1, c.GlobalID)
		assert.Less(t, c.Start, c.End)
		if i > 0 {
			prev := candidates[i-1]
			assert.LessOrEqual(t, prev.End, c.Start, "candidates %d and %d overlap", i, i+1)
		}
	}
}

func TestExtractCandidates_DropsOverlap(t *testing.T) {
	// A string literal with an identifier-like child: only the outer span
	// survives.
	inner := &ast.Node{Kind: "identifier", Start: 1, End: 4, Named: true}
	outer := &ast.Node{Kind: "string", Start: 0, End: 5, Named: true, Children: []*ast.Node{inner}}
	inner.Parent = outer
	root := &ast.Node{Kind: "program", Start: 0, End: 5, Named: true, Children: []*ast.Node{outer}}
	outer.Parent = root

	candidates := ExtractCandidates(&ast.Tree{Source: `"abc"`, Root: root})
	require.Len(t, candidates, 1)
	assert.Equal(t, SourceSpan{Start: 0, End: 5}, candidates[0].SourceSpan)
}

func TestExtractCandidates_NilTree(t *testing.T) {
	assert.Empty(t, ExtractCandidates(nil))
	assert.Empty(t, ExtractCandidates(&ast.Tree{}))
}
