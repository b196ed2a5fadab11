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

	"github.com/AleutianAI/clozecode/services/cloze/ast"
)

// leafKinds are blanked whole: identifiers and literals.
var leafKinds = map[string]bool{
	"identifier":                            true,
	"property_identifier":                   true,
	"private_property_identifier":           true,
	"shorthand_property_identifier":         true,
	"shorthand_property_identifier_pattern": true,
	"type_identifier":                       true,
	"statement_identifier":                  true,
	"string":                                true,
	"number":                                true,
	"true":                                  true,
	"false":                                 true,
}

// criticalBinaryOperators are the logical, comparison and modulo operators.
var criticalBinaryOperators = map[string]bool{
	"&&": true, "||": true, "??": true,
	"==": true, "===": true, "!=": true, "!==": true,
	"<": true, ">": true, "<=": true, ">=": true,
	"%": true,
}

// compoundAssignmentOperators are blanked wherever they appear as the
// operator of an augmented assignment.
var compoundAssignmentOperators = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "**=": true,
	"<<=": true, ">>=": true, ">>>=": true,
	"&=": true, "|=": true, "^=": true,
	"&&=": true, "||=": true, "??=": true,
}

// ExtractCandidates selects the blank spans of a tree.
//
// Description:
//
//	A node is a candidate when it is an identifier or literal, the operator
//	token of a binary expression with a critical operator, the operator of a
//	compound assignment, or the "!" of a logical negation. Nodes under an
//	import statement are skipped, per occurrence: a name imported in the
//	header is still blanked where it is used later.
//
//	Candidates are sorted by Start and numbered 1..N afterwards, because
//	traversal order is not relied on. A candidate overlapping its
//	predecessor is dropped so the result never overlaps.
//
// Inputs:
//   - tree: Parsed source. A nil tree or root yields no candidates.
//
// Outputs:
//   - []BlankCandidate: Sorted by Start, GlobalID strictly increasing.
func ExtractCandidates(tree *ast.Tree) []BlankCandidate {
	if tree == nil || tree.Root == nil {
		return nil
	}

	var spans []SourceSpan
	tree.Root.Walk(func(n *ast.Node) bool {
		// Nothing below an import statement is ever blanked.
		if n.Kind == "import_statement" {
			return false
		}
		if span, ok := candidateSpan(n, tree.Source); ok {
			spans = append(spans, span)
		}
		return true
	})

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})

	candidates := make([]BlankCandidate, 0, len(spans))
	for _, s := range spans {
		if n := len(candidates); n > 0 && candidates[n-1].Overlaps(s) {
			continue
		}
		candidates = append(candidates, BlankCandidate{SourceSpan: s, GlobalID: len(candidates) + 1})
	}
	return candidates
}

// candidateSpan returns the span n contributes, if any.
func candidateSpan(n *ast.Node, source string) (SourceSpan, bool) {
	if n.Len() <= 0 {
		return SourceSpan{}, false
	}
	if leafKinds[n.Kind] && n.Named {
		return SourceSpan{Start: n.Start, End: n.End}, true
	}
	if n.Field != "operator" || n.Parent == nil {
		return SourceSpan{}, false
	}

	op := n.Text(source)
	switch n.Parent.Kind {
	case "binary_expression":
		if criticalBinaryOperators[op] {
			return SourceSpan{Start: n.Start, End: n.End}, true
		}
	case "augmented_assignment_expression":
		if compoundAssignmentOperators[op] {
			return SourceSpan{Start: n.Start, End: n.End}, true
		}
	case "unary_expression":
		if op == "!" {
			return SourceSpan{Start: n.Start, End: n.Start + 1}, true
		}
	}
	return SourceSpan{}, false
}
