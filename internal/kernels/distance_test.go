// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/splat/internal/parallel"
)

func TestDistancePreCalc(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 10}, {0, 0, 1}, {0, 0, 5}, {3, 4, 0}}
	want := []float32{100, 1, 25, 25}

	tests := []struct {
		name   string
		model  mgl32.Mat4
		camera mgl32.Vec3
	}{
		{"identity", mgl32.Ident4(), mgl32.Vec3{}},
		{"translated", mgl32.Translate3D(1, -2, 3), mgl32.Vec3{1, -2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]float32, len(positions))
			parallel.Dispatch(nil, 1, 8, func(gid uint32) {
				DistancePreCalc(gid, positions, tt.model, tt.camera, out)
			})
			for i := range want {
				if !approx(out[i], want[i], 1e-4) {
					t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
				}
			}
		})
	}
}

func TestDistancePreCalcIndexed(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 2}, {1, 0, 0}}
	out := make([]IndexedDistance, 2)
	for gid := range uint32(2) {
		DistancePreCalcIndexed(gid, positions, mgl32.Ident4(), mgl32.Vec3{}, out)
	}
	want := []IndexedDistance{{0, 4}, {1, 1}}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %+v, want %+v", i, out[i], want[i])
		}
	}
}

func TestDistancePreCalc_OverDispatch(t *testing.T) {
	const n = 5
	const sentinel = float32(-1)
	positions := make([]mgl32.Vec3, n)
	for i := range positions {
		positions[i] = mgl32.Vec3{float32(i), 0, 0}
	}

	backing := make([]float32, n+16)
	for i := range backing {
		backing[i] = sentinel
	}
	out := backing[:n:n]

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()
	parallel.Dispatch(pool, 4, 8, func(gid uint32) {
		DistancePreCalc(gid, positions, mgl32.Ident4(), mgl32.Vec3{}, out)
	})

	for i := n; i < len(backing); i++ {
		if backing[i] != sentinel {
			t.Fatalf("backing[%d] = %v, written past splat count", i, backing[i])
		}
	}

	idx := make([]IndexedDistance, n+16)
	for i := range idx {
		idx[i] = IndexedDistance{Index: 0xFFFFFFFF, Distance: sentinel}
	}
	parallel.Dispatch(pool, 4, 8, func(gid uint32) {
		DistancePreCalcIndexed(gid, positions, mgl32.Ident4(), mgl32.Vec3{}, idx[:n])
	})
	for i := n; i < len(idx); i++ {
		if idx[i].Index != 0xFFFFFFFF {
			t.Fatalf("idx[%d] = %+v, written past splat count", i, idx[i])
		}
	}
}
