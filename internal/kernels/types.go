// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// IndexedDistance pairs a splat index with its squared camera distance.
// Its memory layout is {u32 index, f32 distance}, 8 bytes.
type IndexedDistance struct {
	Index    uint32
	Distance float32
}

// SortParams describes one compare-exchange stage of the bitonic network.
// Its memory layout is four u32 values, 16 bytes.
type SortParams struct {
	SplatCount  uint32
	GroupWidth  uint32
	GroupHeight uint32
	StepIndex   uint32
}

// Cov2D is the symmetric 2x2 screen-space covariance [[A, B], [B, D]].
type Cov2D struct {
	A, B, D float32
}

// Axes holds the two scaled semi-axes of a projected ellipse.
type Axes struct {
	V1, V2 mgl32.Vec2
}

// CovSplat is a splat with its 3D covariance stored as the upper triangle:
// CovA = (xx, xy, xz), CovB = (yy, yz, zz).
type CovSplat struct {
	Position mgl32.Vec3
	Color    mgl32.Vec4
	CovA     mgl32.Vec3
	CovB     mgl32.Vec3
}

// CompactSplat is a splat with its covariance packed into three pairs:
// U1 = (xx, xy), U2 = (xz, yy), U3 = (yz, zz). Color is 8-bit RGBA.
type CompactSplat struct {
	Position mgl32.Vec3
	U1       mgl32.Vec2
	U2       mgl32.Vec2
	U3       mgl32.Vec2
	Color    [4]uint8
}

// VertexUniforms are the per-frame inputs of the vertex stage.
type VertexUniforms struct {
	ModelView    mgl32.Mat4
	Projection   mgl32.Mat4
	DrawableSize mgl32.Vec2
	Focal        mgl32.Vec2
	Limit        mgl32.Vec2

	LowPassBias float32
	EigenFloor  float32
	RadiusCap   float32
	CullBound   float32
}

// VertexOut is the record passed from the vertex stage to the fragment stage.
type VertexOut struct {
	Position         mgl32.Vec4
	RelativePosition mgl32.Vec2
	Color            mgl32.Vec4
}

// Counters collects vertex-stage telemetry. A nil *Counters disables it.
type Counters struct {
	Submitted atomic.Uint32
	Culled    atomic.Uint32
}

func (c *Counters) submit() {
	if c != nil {
		c.Submitted.Add(1)
	}
}

func (c *Counters) cull() {
	if c != nil {
		c.Culled.Add(1)
	}
}
