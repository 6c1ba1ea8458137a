// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}

func approxVec2(a, b mgl32.Vec2, eps float32) bool {
	return approx(a[0], b[0], eps) && approx(a[1], b[1], eps)
}

// testUniforms returns uniforms for a camera at the origin looking down -Z
// with a 90° field of view on a 200x200 drawable.
func testUniforms() VertexUniforms {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 100)
	size := mgl32.Vec2{200, 200}
	return VertexUniforms{
		ModelView:    mgl32.Ident4(),
		Projection:   proj,
		DrawableSize: size,
		Focal:        mgl32.Vec2{size[0] * proj[0] / 2, size[1] * proj[5] / 2},
		Limit:        mgl32.Vec2{1.3 / proj[0], 1.3 / proj[5]},
		LowPassBias:  0.3,
		EigenFloor:   0.1,
		RadiusCap:    1024,
		CullBound:    1.2,
	}
}
