// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadeFragment is the classic fragment stage. It returns the premultiplied
// color (rgb*α, α) with α = color.a * exp(-|rel|²), or ok=false when the
// fragment lies beyond BoundsRadius or α is below discardRate.
func ShadeFragment(rel mgl32.Vec2, color mgl32.Vec4, discardRate float32) (out mgl32.Vec4, ok bool) {
	negDist2 := -rel.Dot(rel)
	if negDist2 < -BoundsRadius*BoundsRadius {
		return mgl32.Vec4{}, false
	}
	alpha := color[3] * math32.Exp(negDist2)
	if alpha < discardRate {
		return mgl32.Vec4{}, false
	}
	return mgl32.Vec4{color[0] * alpha, color[1] * alpha, color[2] * alpha, alpha}, true
}

// ShadeFragmentCompact is the fragment stage paired with
// ProjectVertexCompact. It discards when |rel|² > 4.
func ShadeFragmentCompact(rel mgl32.Vec2, color mgl32.Vec4) (out mgl32.Vec4, ok bool) {
	a := -rel.Dot(rel)
	if a < -4 {
		return mgl32.Vec4{}, false
	}
	b := math32.Exp(a) * color[3]
	return mgl32.Vec4{b * color[0], b * color[1], b * color[2], b}, true
}

// DebugFragment colors the two triangles of a splat quad red and green so
// that ellipse footprints are visible.
func DebugFragment(primitive uint32) mgl32.Vec4 {
	switch primitive {
	case 0:
		return mgl32.Vec4{1, 0, 0, 1}
	case 1:
		return mgl32.Vec4{0, 1, 0, 1}
	default:
		return mgl32.Vec4{1, 1, 1, 1}
	}
}
