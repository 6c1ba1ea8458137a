// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundsRadius is the extent of the relative position in the classic
// vertex stage: quad corners at ±1 map to ±BoundsRadius.
const BoundsRadius = 2

// Cull sentinels. A quad whose corners all sit on one sentinel position has
// zero area and produces no fragments.
var (
	ClassicCullPosition = mgl32.Vec4{1, 1, 0, 1}
	CompactCullPosition = mgl32.Vec4{0, 0, 2, 1}
)

// QuadCorners are the four corners of the unit splat quad, in the order
// triangle strips expect: (-1,-1), (1,-1), (-1,1), (1,1).
var QuadCorners = [4]mgl32.Vec2{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

// ProjectVertex is the classic vertex stage for one quad corner.
//
// The splat center is culled with ClassicCullPosition when it lies behind
// the near plane (z < -w), more than CullBound*w off screen, or when its
// covariance has a negative eigenvalue. Otherwise the
// corner is offset from the clip-space center along the decomposed ellipse
// axes.
func ProjectVertex(corner mgl32.Vec2, s *CovSplat, u *VertexUniforms, c *Counters) VertexOut {
	c.submit()

	view := u.ModelView.Mul4x1(s.Position.Vec4(1))
	clip := u.Projection.Mul4x1(view)

	bound := u.CullBound * clip[3]
	if clip[2] < -clip[3] || outside(clip, bound) {
		c.cull()
		return VertexOut{Position: ClassicCullPosition}
	}

	cov := Covariance2D(view.Vec3(), s.CovA, s.CovB, u.ModelView, u.Focal, u.Limit, u.LowPassBias)
	axes, ok := DecomposeCovariance(cov, u.EigenFloor)
	if !ok {
		c.cull()
		return VertexOut{Position: ClassicCullPosition}
	}

	delta := axes.V1.Mul(corner[0]).Add(axes.V2.Mul(corner[1])).Mul(2 * BoundsRadius)
	delta[0] /= u.DrawableSize[0]
	delta[1] /= u.DrawableSize[1]

	return VertexOut{
		Position:         clip.Add(mgl32.Vec4{delta[0] * clip[3], delta[1] * clip[3], 0, 0}),
		RelativePosition: corner.Mul(BoundsRadius),
		Color:            s.Color,
	}
}

// ProjectVertexCompact is the vertex stage for CompactSplat records.
//
// Corners are expected at ±2. Splats outside CullBound*w, or whose
// covariance has a negative eigenvalue, produce CompactCullPosition. The
// output color is the 8-bit color scaled by clamp(z/w + 1, 0, 1).
func ProjectVertexCompact(corner mgl32.Vec2, s *CompactSplat, u *VertexUniforms, c *Counters) VertexOut {
	c.submit()

	cam := u.ModelView.Mul4x1(s.Position.Vec4(1))
	pos2d := u.Projection.Mul4x1(cam)

	bound := u.CullBound * pos2d[3]
	if pos2d[2] < -bound || outside(pos2d, bound) {
		c.cull()
		return VertexOut{Position: CompactCullPosition}
	}

	cov := Covariance2DCompact(cam, s.U1, s.U2, s.U3, u.ModelView, u.Focal)
	axes, ok := DecomposeCompact(cov, u.RadiusCap)
	if !ok {
		c.cull()
		return VertexOut{Position: CompactCullPosition}
	}

	center := pos2d.Vec2().Mul(1 / pos2d[3])
	offset := axes.V1.Mul(corner[0]).Add(axes.V2.Mul(corner[1]))
	offset[0] /= u.DrawableSize[0]
	offset[1] /= u.DrawableSize[1]

	fade := clampf(pos2d[2]/pos2d[3]+1, 0, 1) / 255
	color := mgl32.Vec4{
		float32(s.Color[0]),
		float32(s.Color[1]),
		float32(s.Color[2]),
		float32(s.Color[3]),
	}.Mul(fade)

	return VertexOut{
		Position:         center.Add(offset).Vec4(0, 1),
		RelativePosition: corner,
		Color:            color,
	}
}

func outside(p mgl32.Vec4, bound float32) bool {
	return math32.Abs(p[0]) > bound || math32.Abs(p[1]) > bound
}
