// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import "github.com/go-gl/mathgl/mgl32"

// DistancePreCalc writes the squared distance between model*positions[gid]
// and camera into out[gid]. Invocations with gid >= len(positions) return
// without writing, so the grid may be larger than the splat count.
func DistancePreCalc(gid uint32, positions []mgl32.Vec3, model mgl32.Mat4, camera mgl32.Vec3, out []float32) {
	if gid >= uint32(len(positions)) {
		return
	}
	out[gid] = squaredDistance(positions[gid], model, camera)
}

// DistancePreCalcIndexed is DistancePreCalc writing IndexedDistance records
// with Index set to gid.
func DistancePreCalcIndexed(gid uint32, positions []mgl32.Vec3, model mgl32.Mat4, camera mgl32.Vec3, out []IndexedDistance) {
	if gid >= uint32(len(positions)) {
		return
	}
	out[gid] = IndexedDistance{
		Index:    gid,
		Distance: squaredDistance(positions[gid], model, camera),
	}
}

func squaredDistance(p mgl32.Vec3, model mgl32.Mat4, camera mgl32.Vec3) float32 {
	world := model.Mul4x1(p.Vec4(1)).Vec3()
	return world.Sub(camera).LenSqr()
}
