// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"math/rand/v2"
	"testing"

	"github.com/gogpu/splat/internal/parallel"
)

func TestNextPow2(t *testing.T) {
	tests := []struct{ n, want uint32 }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {1000, 1024}, {1024, 1024},
	}
	for _, tt := range tests {
		if got := NextPow2(tt.n); got != tt.want {
			t.Errorf("NextPow2(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestBitonicSchedule(t *testing.T) {
	got := BitonicSchedule(4)
	want := []SortParams{
		{SplatCount: 4, GroupWidth: 1, GroupHeight: 1, StepIndex: 0},
		{SplatCount: 4, GroupWidth: 2, GroupHeight: 3, StepIndex: 0},
		{SplatCount: 4, GroupWidth: 1, GroupHeight: 1, StepIndex: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("len(schedule) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("schedule[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if s := BitonicSchedule(1); s != nil {
		t.Errorf("BitonicSchedule(1) = %v, want nil", s)
	}
	// 5 rounds up to 8: three outer stages, 1+2+3 steps.
	if s := BitonicSchedule(5); len(s) != 6 {
		t.Errorf("len(BitonicSchedule(5)) = %d, want 6", len(s))
	}
}

// runBitonic executes the full network, dispatching more threads than
// each stage needs.
func runBitonic(pool *parallel.WorkerPool, records []IndexedDistance) {
	n := uint32(len(records))
	groups := parallel.Groups(BitonicThreads(n), 64) + 1
	for _, p := range BitonicSchedule(n) {
		parallel.Dispatch(pool, groups, 64, func(gid uint32) {
			BitonicStageIndexed(gid, p, records)
		})
	}
}

func TestBitonic_FourSplats(t *testing.T) {
	records := []IndexedDistance{{0, 10}, {1, 1}, {2, 5}, {3, 2}}
	runBitonic(nil, records)

	wantDist := []float32{10, 5, 2, 1}
	wantIdx := []uint32{0, 2, 3, 1}
	for i := range records {
		if records[i].Distance != wantDist[i] || records[i].Index != wantIdx[i] {
			t.Errorf("records[%d] = %+v, want {%d %v}", i, records[i], wantIdx[i], wantDist[i])
		}
	}
}

func TestBitonic_SortsDescendingPermutation(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	rng := rand.New(rand.NewPCG(7, 11))
	sizes := []int{0, 1, 2, 3, 5, 7, 8, 13, 16, 31, 33, 64, 100, 257, 1000}

	for _, n := range sizes {
		records := make([]IndexedDistance, n)
		for i := range records {
			// Coarse values so that ties occur.
			records[i] = IndexedDistance{Index: uint32(i), Distance: float32(rng.IntN(50))}
		}
		runBitonic(pool, records)

		seen := make([]bool, n)
		for i, r := range records {
			if i > 0 && records[i-1].Distance < r.Distance {
				t.Fatalf("n=%d: records[%d].Distance = %v > records[%d].Distance = %v",
					n, i, r.Distance, i-1, records[i-1].Distance)
			}
			if r.Index >= uint32(n) || seen[r.Index] {
				t.Fatalf("n=%d: index %d lost or duplicated", n, r.Index)
			}
			seen[r.Index] = true
		}
	}
}

func TestBitonicStage_FlatIndices(t *testing.T) {
	distances := []float32{3, 9, 1, 7, 5}
	indices := []uint32{0, 1, 2, 3, 4}

	n := uint32(len(indices))
	for _, p := range BitonicSchedule(n) {
		for gid := range BitonicThreads(n) {
			BitonicStage(gid, p, indices, distances)
		}
	}

	want := []uint32{1, 3, 4, 0, 2}
	for i := range want {
		if indices[i] != want[i] {
			t.Errorf("indices = %v, want %v", indices, want)
			break
		}
	}
}

func TestBitonicStage_Idempotent(t *testing.T) {
	records := []IndexedDistance{{0, 4}, {1, 8}, {2, 1}, {3, 3}, {4, 6}, {5, 2}}
	n := uint32(len(records))

	for _, p := range BitonicSchedule(n) {
		for gid := range BitonicThreads(n) {
			BitonicStageIndexed(gid, p, records)
		}
		snapshot := append([]IndexedDistance(nil), records...)
		for gid := range BitonicThreads(n) {
			BitonicStageIndexed(gid, p, records)
		}
		for i := range records {
			if records[i] != snapshot[i] {
				t.Fatalf("re-running stage %+v changed records[%d]: %+v -> %+v", p, i, snapshot[i], records[i])
			}
		}
	}
}

func TestBitonicStage_OutOfBounds(t *testing.T) {
	const n = 6
	sentinel := IndexedDistance{Index: 0xFFFFFFFF, Distance: 1e30}

	backing := make([]IndexedDistance, n+8)
	for i := range backing {
		backing[i] = sentinel
	}
	for i := range n {
		backing[i] = IndexedDistance{Index: uint32(i), Distance: float32(i)}
	}

	records := backing[:n:n]
	runBitonic(nil, records)

	for i := n; i < len(backing); i++ {
		if backing[i] != sentinel {
			t.Fatalf("backing[%d] = %+v, written past element count", i, backing[i])
		}
	}
	for i := range n {
		if records[i].Distance != float32(n-1-i) {
			t.Errorf("records[%d].Distance = %v, want %d", i, records[i].Distance, n-1-i)
		}
	}
}
