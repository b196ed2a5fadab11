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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCandidates(n int) []BlankCandidate {
	out := make([]BlankCandidate, n)
	for i := range out {
		out[i] = cand(i*4, i*4+2, i+1)
	}
	return out
}

func TestBuildBatches_Partition(t *testing.T) {
	for n := 1; n <= 25; n++ {
		for limit := 1; limit <= 7; limit++ {
			t.Run(fmt.Sprintf("n=%d/max=%d", n, limit), func(t *testing.T) {
				candidates := makeCandidates(n)
				batches := BuildBatches(candidates, limit)

				require.Len(t, batches, (n+limit-1)/limit)
				seen := make(map[int]bool, n)
				for bi, b := range batches {
					assert.Equal(t, bi, b.Index)
					assert.LessOrEqual(t, b.Size(), limit)
					assert.Positive(t, b.Size())
					for i, c := range b.Candidates {
						assert.False(t, seen[c.GlobalID], "candidate %d in two batches", c.GlobalID)
						seen[c.GlobalID] = true
						local, ok := b.LocalID(c.GlobalID)
						assert.True(t, ok)
						assert.Equal(t, i+1, local)
					}
				}
				assert.Len(t, seen, n)
			})
		}
	}
}

func TestBuildBatches_OnlyLastIsShort(t *testing.T) {
	batches := BuildBatches(makeCandidates(7), 3)
	require.Len(t, batches, 3)
	assert.Equal(t, 3, batches[0].Size())
	assert.Equal(t, 3, batches[1].Size())
	assert.Equal(t, 1, batches[2].Size())

	local, ok := batches[1].LocalID(4)
	assert.True(t, ok)
	assert.Equal(t, 1, local)
	_, ok = batches[1].LocalID(1)
	assert.False(t, ok)
}

func TestBuildBatches_Empty(t *testing.T) {
	batches := BuildBatches(nil, 5)
	require.Len(t, batches, 1)
	assert.Equal(t, 0, batches[0].Size())
	assert.Empty(t, batches[0].Active())
}

func TestBuildBatches_NonPositiveMax(t *testing.T) {
	for _, limit := range []int{0, -3} {
		batches := BuildBatches(makeCandidates(3), limit)
		assert.Len(t, batches, 3)
	}
}

func TestBuildBatches_DoesNotAliasAppend(t *testing.T) {
	candidates := makeCandidates(4)
	batches := BuildBatches(candidates, 2)
	grown := append(batches[0].Candidates, cand(100, 101, 99))
	assert.Equal(t, 99, grown[2].GlobalID)
	assert.Equal(t, 3, candidates[2].GlobalID)
}
