// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// FragmentFunc receives one covered pixel of a quad together with the
// interpolated relative position and the index of the triangle (0 or 1)
// that covers it.
type FragmentFunc func(x, y int, rel mgl32.Vec2, primitive uint32)

// RasterizeQuad scan-converts a splat quad whose vertices are in QuadCorners
// order. Both vertex stages emit parallelograms with a constant w, so the
// relative position is an affine function of the pixel position and is
// recovered by inverting the quad's edge vectors.
//
// A pixel on the diagonal shared by the two triangles belongs to
// triangle 0.
//
// Quads that are degenerate (including cull sentinels), non-finite, or
// entirely outside the viewport produce no fragments.
func RasterizeQuad(q *[4]VertexOut, width, height int, fn FragmentFunc) {
	var px [4]mgl32.Vec2
	for i := range q {
		p := q[i].Position
		if !(p[3] != 0) {
			return
		}
		ndc := mgl32.Vec2{p[0] / p[3], p[1] / p[3]}
		px[i] = mgl32.Vec2{
			(ndc[0] + 1) * 0.5 * float32(width),
			(1 - ndc[1]) * 0.5 * float32(height),
		}
		if !finite(px[i][0]) || !finite(px[i][1]) {
			return
		}
	}

	center := px[0].Add(px[3]).Mul(0.5)
	ex := px[1].Sub(px[0]).Mul(0.5)
	ey := px[2].Sub(px[0]).Mul(0.5)
	det := ex[0]*ey[1] - ex[1]*ey[0]
	if math32.Abs(det) < 1e-6 {
		return
	}
	inv := 1 / det

	relCenter := q[0].RelativePosition.Add(q[3].RelativePosition).Mul(0.5)
	relX := q[1].RelativePosition.Sub(q[0].RelativePosition).Mul(0.5)
	relY := q[2].RelativePosition.Sub(q[0].RelativePosition).Mul(0.5)

	minX, minY := px[0][0], px[0][1]
	maxX, maxY := minX, minY
	for _, p := range px[1:] {
		minX, maxX = math32.Min(minX, p[0]), math32.Max(maxX, p[0])
		minY, maxY = math32.Min(minY, p[1]), math32.Max(maxY, p[1])
	}
	x0 := int(clampf(math32.Floor(minX), 0, float32(width)))
	y0 := int(clampf(math32.Floor(minY), 0, float32(height)))
	x1 := int(clampf(math32.Ceil(maxX), -1, float32(width-1)))
	y1 := int(clampf(math32.Ceil(maxY), -1, float32(height-1)))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d := mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}.Sub(center)
			u := (d[0]*ey[1] - d[1]*ey[0]) * inv
			v := (ex[0]*d[1] - ex[1]*d[0]) * inv
			if u < -1 || u > 1 || v < -1 || v > 1 {
				continue
			}
			rel := relCenter.Add(relX.Mul(u)).Add(relY.Mul(v))
			var primitive uint32
			if u+v > 1e-6 {
				primitive = 1
			}
			fn(x, y, rel, primitive)
		}
	}
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}
