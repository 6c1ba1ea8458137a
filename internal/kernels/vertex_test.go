// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// =============================================================================
// Classic vertex stage
// =============================================================================

func TestProjectVertex_Visible(t *testing.T) {
	u := testUniforms()
	s := CovSplat{
		Position: mgl32.Vec3{0, 0, -5},
		Color:    mgl32.Vec4{0.2, 0.4, 0.6, 0.8},
		CovA:     mgl32.Vec3{0.01, 0, 0},
		CovB:     mgl32.Vec3{0.01, 0, 0.01},
	}
	var c Counters

	got := ProjectVertex(mgl32.Vec2{1, 1}, &s, &u, &c)

	if !approx(got.Position[3], 5, 1e-4) {
		t.Errorf("w = %v, want 5", got.Position[3])
	}
	// cov = 4.3·I, so the axes are √8.8 and √8.4 and the corner offset in
	// NDC is 4·|V1+V2|/200.
	ndc := mgl32.Vec2{got.Position[0], got.Position[1]}.Mul(1 / got.Position[3])
	want := 0.02 * math32.Sqrt(17.2)
	if !approx(ndc.Len(), want, 1e-4) {
		t.Errorf("|ndc offset| = %v, want %v", ndc.Len(), want)
	}
	if got.RelativePosition != (mgl32.Vec2{2, 2}) {
		t.Errorf("RelativePosition = %v, want (2, 2)", got.RelativePosition)
	}
	if got.Color != s.Color {
		t.Errorf("Color = %v, want %v", got.Color, s.Color)
	}
	if c.Submitted.Load() != 1 || c.Culled.Load() != 0 {
		t.Errorf("counters = (%d, %d), want (1, 0)", c.Submitted.Load(), c.Culled.Load())
	}
}

func TestProjectVertex_CornersAreSymmetric(t *testing.T) {
	u := testUniforms()
	s := CovSplat{
		Position: mgl32.Vec3{0.5, -0.25, -4},
		CovA:     mgl32.Vec3{0.04, 0.01, 0},
		CovB:     mgl32.Vec3{0.02, 0, 0.03},
	}

	var q [4]VertexOut
	for i, corner := range QuadCorners {
		q[i] = ProjectVertex(corner, &s, &u, nil)
	}

	// Opposite corners are mirrored about the clip-space center.
	mid03 := q[0].Position.Add(q[3].Position).Mul(0.5)
	mid12 := q[1].Position.Add(q[2].Position).Mul(0.5)
	for i := range 4 {
		if !approx(mid03[i], mid12[i], 1e-5) {
			t.Errorf("diagonal midpoints differ at %d: %v vs %v", i, mid03, mid12)
		}
	}
}

func TestProjectVertex_Culled(t *testing.T) {
	tests := []struct {
		name string
		pos  mgl32.Vec3
	}{
		{"behind camera", mgl32.Vec3{0, 0, 5}},
		{"off screen right", mgl32.Vec3{100, 0, -5}},
		{"off screen top", mgl32.Vec3{0, 100, -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := testUniforms()
			s := CovSplat{
				Position: tt.pos,
				CovA:     mgl32.Vec3{0.01, 0, 0},
				CovB:     mgl32.Vec3{0.01, 0, 0.01},
			}
			var c Counters

			got := ProjectVertex(mgl32.Vec2{-1, 1}, &s, &u, &c)

			if got.Position != ClassicCullPosition {
				t.Errorf("Position = %v, want %v", got.Position, ClassicCullPosition)
			}
			if c.Submitted.Load() != 1 || c.Culled.Load() != 1 {
				t.Errorf("counters = (%d, %d), want (1, 1)", c.Submitted.Load(), c.Culled.Load())
			}
		})
	}
}

func TestProjectVertex_NegativeEigenvalueCulled(t *testing.T) {
	u := testUniforms()
	u.LowPassBias = 0
	s := CovSplat{
		Position: mgl32.Vec3{0, 0, -5},
		CovA:     mgl32.Vec3{1e-8, 0, 0},
		CovB:     mgl32.Vec3{1e-8, 0, 1e-8},
	}
	var c Counters

	got := ProjectVertex(mgl32.Vec2{1, -1}, &s, &u, &c)

	if got.Position != ClassicCullPosition {
		t.Errorf("Position = %v, want %v", got.Position, ClassicCullPosition)
	}
	if c.Submitted.Load() != 1 || c.Culled.Load() != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", c.Submitted.Load(), c.Culled.Load())
	}
}

// =============================================================================
// Compact vertex stage
// =============================================================================

func TestProjectVertexCompact_Visible(t *testing.T) {
	u := testUniforms()
	s := CompactSplat{
		Position: mgl32.Vec3{0, 0, -5},
		U1:       mgl32.Vec2{0.01, 0},
		U2:       mgl32.Vec2{0, 0.01},
		U3:       mgl32.Vec2{0, 0.01},
		Color:    [4]uint8{255, 128, 0, 255},
	}

	got := ProjectVertexCompact(mgl32.Vec2{2, 0}, &s, &u, nil)

	// cov = 4·I, so the major axis is √8 along x and the corner lands at
	// 2·√8/200 in NDC.
	want := mgl32.Vec4{2 * math32.Sqrt(8) / 200, 0, 0, 1}
	for i := range 4 {
		if !approx(got.Position[i], want[i], 1e-5) {
			t.Fatalf("Position = %v, want %v", got.Position, want)
		}
	}
	if got.RelativePosition != (mgl32.Vec2{2, 0}) {
		t.Errorf("RelativePosition = %v, want (2, 0)", got.RelativePosition)
	}
	wantColor := mgl32.Vec4{1, 128.0 / 255, 0, 1}
	for i := range 4 {
		if !approx(got.Color[i], wantColor[i], 1e-5) {
			t.Fatalf("Color = %v, want %v", got.Color, wantColor)
		}
	}
}

func TestProjectVertexCompact_Culled(t *testing.T) {
	tests := []struct {
		name string
		s    CompactSplat
	}{
		{
			name: "off screen",
			s: CompactSplat{
				Position: mgl32.Vec3{100, 0, -5},
				U1:       mgl32.Vec2{0.01, 0},
				U2:       mgl32.Vec2{0, 0.01},
				U3:       mgl32.Vec2{0, 0.01},
			},
		},
		{
			name: "indefinite covariance",
			s: CompactSplat{
				Position: mgl32.Vec3{0, 0, -5},
				U1:       mgl32.Vec2{1, 2},
				U2:       mgl32.Vec2{0, 1},
				U3:       mgl32.Vec2{0, 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := testUniforms()
			var c Counters

			got := ProjectVertexCompact(mgl32.Vec2{2, 2}, &tt.s, &u, &c)

			if got.Position != CompactCullPosition {
				t.Errorf("Position = %v, want %v", got.Position, CompactCullPosition)
			}
			if c.Culled.Load() != 1 {
				t.Errorf("Culled = %d, want 1", c.Culled.Load())
			}
		})
	}
}

func TestCounters_NilSafe(t *testing.T) {
	u := testUniforms()
	s := CovSplat{Position: mgl32.Vec3{0, 0, 5}}

	// Must not panic.
	_ = ProjectVertex(mgl32.Vec2{1, 1}, &s, &u, nil)
}
