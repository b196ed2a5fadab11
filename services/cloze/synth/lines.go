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
	"strings"
)

// lineIndex maps between line numbers and byte offsets of a source.
type lineIndex struct {
	source string
	starts []int
}

func newLineIndex(source string) *lineIndex {
	starts := make([]int, 1, strings.Count(source, "\n")+1)
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{source: source, starts: starts}
}

// count returns the number of lines. A trailing newline yields a final
// empty line, matching strings.Split.
func (li *lineIndex) count() int {
	return len(li.starts)
}

// start returns the offset of the line's first byte.
func (li *lineIndex) start(line int) int {
	return li.starts[line]
}

// text returns the line without its newline.
func (li *lineIndex) text(line int) string {
	end := len(li.source)
	if line+1 < len(li.starts) {
		end = li.starts[line+1] - 1
	}
	return li.source[li.starts[line]:end]
}

// lineOf returns the line containing offset.
func (li *lineIndex) lineOf(offset int) int {
	return sort.Search(len(li.starts), func(i int) bool {
		return li.starts[i] > offset
	}) - 1
}

// firstColumn returns the offset of the line's first non-blank byte, or of
// the line start when the line is blank.
func (li *lineIndex) firstColumn(line int) (int, bool) {
	if line < 0 || line >= len(li.starts) {
		return 0, false
	}
	text := li.text(line)
	indent := len(text) - len(strings.TrimLeft(text, " \t"))
	if indent == len(text) {
		indent = 0
	}
	return li.starts[line] + indent, true
}
