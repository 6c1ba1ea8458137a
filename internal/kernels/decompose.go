// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultAxis replaces an eigenvector direction that evaluated to NaN.
var DefaultAxis = mgl32.Vec2{1, 0}

// EigenSpread returns max(floor, sqrt(mean² - det)), the half distance
// between the two eigenvalues. The discriminant is clamped at zero first,
// so the square root never sees a negative argument.
func EigenSpread(mean, det, floor float32) float32 {
	disc := mean*mean - det
	if !(disc > 0) {
		disc = 0
	}
	return math32.Max(floor, math32.Sqrt(disc))
}

// DecomposeCovariance turns a 2D covariance into two ellipse semi-axes,
// each scaled by sqrt(2λ).
//
// When B is zero the major axis is the coordinate axis of the larger
// diagonal term (A > D picks x). A NaN direction is replaced by
// DefaultAxis and a NaN or negative scale collapses the axis to zero.
// ok is false when the smaller eigenvalue is negative or NaN; callers emit
// the cull sentinel then.
func DecomposeCovariance(c Cov2D, floor float32) (axes Axes, ok bool) {
	a, b, d := c.A, c.B, c.D
	det := a*d - b*b
	mean := 0.5 * (a + d)
	dist := EigenSpread(mean, det, floor)
	lambda1 := mean + dist
	lambda2 := mean - dist

	var e1 mgl32.Vec2
	switch {
	case b == 0 && a > d:
		e1 = mgl32.Vec2{1, 0}
	case b == 0:
		e1 = mgl32.Vec2{0, 1}
	default:
		e1 = mgl32.Vec2{b, d - lambda2}.Normalize()
	}
	if isNaN2(e1) {
		e1 = DefaultAxis
	}
	e2 := mgl32.Vec2{e1[1], -e1[0]}

	return Axes{
		V1: e1.Mul(axisScale(lambda1)),
		V2: e2.Mul(axisScale(lambda2)),
	}, lambda2 >= 0
}

// DecomposeCompact is the alternate decomposition used with CompactSplat.
//
// It derives the eigenvalues from the radius of the covariance circle and
// caps each axis at radiusCap pixels. ok is false when the smaller
// eigenvalue is negative or NaN; callers emit the cull sentinel then.
func DecomposeCompact(c Cov2D, radiusCap float32) (axes Axes, ok bool) {
	mid := (c.A + c.D) / 2
	radius := mgl32.Vec2{(c.A - c.D) / 2, c.B}.Len()
	lambda1 := mid + radius
	lambda2 := mid - radius
	if !(lambda2 >= 0) {
		return Axes{}, false
	}

	dv := mgl32.Vec2{c.B, lambda1 - c.A}.Normalize()
	if isNaN2(dv) {
		dv = DefaultAxis
	}
	major := math32.Min(math32.Sqrt(2*lambda1), radiusCap)
	minor := math32.Min(math32.Sqrt(2*lambda2), radiusCap)

	return Axes{
		V1: dv.Mul(major),
		V2: mgl32.Vec2{dv[1], -dv[0]}.Mul(minor),
	}, true
}

func axisScale(lambda float32) float32 {
	if !(lambda > 0) {
		return 0
	}
	return math32.Sqrt(2 * lambda)
}

func isNaN2(v mgl32.Vec2) bool {
	return math32.IsNaN(v[0]) || math32.IsNaN(v[1])
}
