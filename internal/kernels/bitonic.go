// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import "math/bits"

// NextPow2 returns the smallest power of two >= n (1 for n <= 1).
func NextPow2(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len32(n-1)
}

// BitonicThreads returns the number of invocations each stage of the
// network needs for n elements.
func BitonicThreads(n uint32) uint32 {
	return NextPow2(n) / 2
}

// BitonicSchedule returns the stage descriptors of a full bitonic network
// over n elements, in dispatch order. For outer stage s and inner step
// t <= s the group width is 1<<(s-t); step 0 is the mirrored compare of
// the merge and later steps are half cleaners.
func BitonicSchedule(n uint32) []SortParams {
	if n < 2 {
		return nil
	}
	stages := bits.Len32(NextPow2(n)) - 1
	schedule := make([]SortParams, 0, stages*(stages+1)/2)
	for s := range stages {
		for t := 0; t <= s; t++ {
			gw := uint32(1) << (s - t)
			schedule = append(schedule, SortParams{
				SplatCount:  n,
				GroupWidth:  gw,
				GroupHeight: 2*gw - 1,
				StepIndex:   uint32(t),
			})
		}
	}
	return schedule
}

// bitonicPair maps a thread index to the element pair it compares.
// ok is false when the right element lies beyond the element count,
// which is how non power of two counts are handled.
func bitonicPair(gid uint32, p SortParams) (left, right uint32, ok bool) {
	h := gid & (p.GroupWidth - 1)
	left = h + (p.GroupHeight+1)*(gid/p.GroupWidth)
	var step uint32
	if p.StepIndex == 0 {
		step = p.GroupHeight - 2*h
	} else {
		step = (p.GroupHeight + 1) / 2
	}
	right = left + step
	return left, right, right < p.SplatCount
}

// BitonicStage performs one compare-exchange stage over a flat index array
// keyed by distances[indices[i]]. Pairs are swapped when the left distance
// is smaller, so the network orders indices by descending distance.
func BitonicStage(gid uint32, p SortParams, indices []uint32, distances []float32) {
	left, right, ok := bitonicPair(gid, p)
	if !ok || right >= uint32(len(indices)) {
		return
	}
	vl, vr := indices[left], indices[right]
	if distances[vl] < distances[vr] {
		indices[left], indices[right] = vr, vl
	}
}

// BitonicStageIndexed is BitonicStage over IndexedDistance records sorted
// in place by their Distance field.
func BitonicStageIndexed(gid uint32, p SortParams, records []IndexedDistance) {
	left, right, ok := bitonicPair(gid, p)
	if !ok || right >= uint32(len(records)) {
		return
	}
	if records[left].Distance < records[right].Distance {
		records[left], records[right] = records[right], records[left]
	}
}
