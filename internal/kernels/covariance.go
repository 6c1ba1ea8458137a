// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Covariance2D projects a 3D covariance into screen space.
//
// viewPos is the splat center in view space. The ratios x/z and y/z are
// clamped to ±limit before the Jacobian is built so that splats far off to
// the side do not stretch into degenerate ellipses. W is the upper-left 3x3
// of modelView. bias is added to both diagonal terms so that every splat
// covers at least one pixel.
func Covariance2D(viewPos, covA, covB mgl32.Vec3, modelView mgl32.Mat4, focal, limit mgl32.Vec2, bias float32) Cov2D {
	invZ := 1 / viewPos[2]
	invZ2 := invZ * invZ

	x := clampf(viewPos[0]*invZ, -limit[0], limit[0]) * viewPos[2]
	y := clampf(viewPos[1]*invZ, -limit[1], limit[1]) * viewPos[2]

	j := mgl32.Mat3{
		focal[0] * invZ, 0, 0,
		0, focal[1] * invZ, 0,
		-(focal[0] * x) * invZ2, -(focal[1] * y) * invZ2, 0,
	}
	t := j.Mul3(modelView.Mat3())
	vrk := mgl32.Mat3{
		covA[0], covA[1], covA[2],
		covA[1], covB[0], covB[1],
		covA[2], covB[1], covB[2],
	}
	cov := t.Mul3(vrk).Mul3(t.Transpose())

	return Cov2D{A: cov[0] + bias, B: cov[1], D: cov[4] + bias}
}

// Covariance2DCompact is the projection used with CompactSplat records.
//
// cam is the splat center in view space. The Jacobian flips y and is not
// clamped, and no low-pass bias is applied.
func Covariance2DCompact(cam mgl32.Vec4, u1, u2, u3 mgl32.Vec2, view mgl32.Mat4, focal mgl32.Vec2) Cov2D {
	vrk := mgl32.Mat3{
		u1[0], u1[1], u2[0],
		u1[1], u2[1], u3[0],
		u2[0], u3[0], u3[1],
	}
	z2 := cam[2] * cam[2]
	j := mgl32.Mat3{
		focal[0] / cam[2], 0, -(focal[0] * cam[0]) / z2,
		0, -focal[1] / cam[2], (focal[1] * cam[1]) / z2,
		0, 0, 0,
	}
	t := view.Mat3().Transpose().Mul3(j)
	cov := t.Transpose().Mul3(vrk).Mul3(t)

	return Cov2D{A: cov[0], B: cov[1], D: cov[4]}
}

func clampf(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
