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

// Batch is the group of candidates active on one card.
//
// Batches are immutable once built. Candidates keep their global order and
// are numbered 1..len(Candidates) locally.
type Batch struct {
	// Index is the 0-based position of the batch in the run.
	Index int

	// Candidates are the active blanks, ordered by GlobalID.
	Candidates []BlankCandidate

	localIDs map[int]int
}

// Size returns the number of active blanks.
func (b Batch) Size() int {
	return len(b.Candidates)
}

// LocalID returns the card-local cloze number of a global candidate.
func (b Batch) LocalID(globalID int) (int, bool) {
	id, ok := b.localIDs[globalID]
	return id, ok
}

// Active returns the GlobalID → local id map. Callers must not modify it.
func (b Batch) Active() map[int]int {
	return b.localIDs
}

// BuildBatches partitions candidates into cards of at most maxPerBatch
// blanks.
//
// Description:
//
//	Groups are consecutive runs of the sorted candidate list; only the last
//	may be short. Every candidate lands in exactly one batch and the batch
//	count is ceil(N/maxPerBatch). With no candidates a single empty batch is
//	returned so the source still becomes one plain card.
//
// Inputs:
//   - candidates: Sorted by GlobalID.
//   - maxPerBatch: Values below 1 are treated as 1.
//
// Outputs:
//   - []Batch: Never empty.
func BuildBatches(candidates []BlankCandidate, maxPerBatch int) []Batch {
	if maxPerBatch < 1 {
		maxPerBatch = 1
	}
	if len(candidates) == 0 {
		return []Batch{{Index: 0, localIDs: map[int]int{}}}
	}

	batches := make([]Batch, 0, (len(candidates)+maxPerBatch-1)/maxPerBatch)
	for start := 0; start < len(candidates); start += maxPerBatch {
		end := min(start+maxPerBatch, len(candidates))
		group := candidates[start:end:end]
		ids := make(map[int]int, len(group))
		for i, c := range group {
			ids[c.GlobalID] = i + 1
		}
		batches = append(batches, Batch{
			Index:      len(batches),
			Candidates: group,
			localIDs:   ids,
		})
	}
	return batches
}
