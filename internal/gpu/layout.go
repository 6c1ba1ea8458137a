// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/splat/internal/kernels"
)

// Uniform and record sizes in bytes. They match the WGSL structs.
const (
	// DistanceParamsSize is mat4x4 model, vec3 camera, u32 count.
	DistanceParamsSize = 80

	// RadixParamsSize is four u32 values.
	RadixParamsSize = 16

	// VertexUniformsSize is the Uniforms struct of splat.wgsl.
	VertexUniformsSize = 176

	// SplatRecordSize is one Splat record of splat.wgsl.
	SplatRecordSize = 64

	// CompactRecordSize is one CompactSplat record of splat.wgsl.
	CompactRecordSize = 48

	// uniformAlign is the dynamic uniform offset alignment every backend
	// accepts (minUniformBufferOffsetAlignment).
	uniformAlign = 256
)

// RadixParams are the per-pass uniforms of the radix shaders.
type RadixParams struct {
	Count    uint32
	Shift    uint32
	TileSize uint32
	Tiles    uint32
}

// Append appends the four u32 fields in declaration order.
func (p RadixParams) Append(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, p.Count)
	b = binary.LittleEndian.AppendUint32(b, p.Shift)
	b = binary.LittleEndian.AppendUint32(b, p.TileSize)
	return binary.LittleEndian.AppendUint32(b, p.Tiles)
}

// AppendDistanceParams appends the DistanceParams uniform of distance.wgsl.
// mgl32 matrices are column-major like WGSL, so the model matrix is copied
// element by element.
func AppendDistanceParams(b []byte, model mgl32.Mat4, camera mgl32.Vec3, count uint32) []byte {
	b = appendFloats(b, model[:]...)
	b = appendFloats(b, camera[:]...)
	return binary.LittleEndian.AppendUint32(b, count)
}

// AppendVertexUniforms appends the Uniforms struct of splat.wgsl.
func AppendVertexUniforms(b []byte, u *kernels.VertexUniforms, discardRate float32) []byte {
	b = appendFloats(b, u.ModelView[:]...)
	b = appendFloats(b, u.Projection[:]...)
	b = appendFloats(b, u.DrawableSize[:]...)
	b = appendFloats(b, u.Focal[:]...)
	b = appendFloats(b, u.Limit[:]...)
	return appendFloats(b,
		u.LowPassBias, u.EigenFloor, u.RadiusCap, u.CullBound, discardRate, 0)
}

// AppendSplats appends splats as Splat records: position, color and the
// two covariance rows each widened to a vec4.
func AppendSplats(b []byte, splats []kernels.CovSplat) []byte {
	for i := range splats {
		s := &splats[i]
		b = appendFloats(b, s.Position[0], s.Position[1], s.Position[2], 1)
		b = appendFloats(b, s.Color[:]...)
		b = appendFloats(b, s.CovA[0], s.CovA[1], s.CovA[2], 0)
		b = appendFloats(b, s.CovB[0], s.CovB[1], s.CovB[2], 0)
	}
	return b
}

// AppendCompactSplats appends splats as CompactSplat records. The 8-bit
// color is packed little-endian so unpack4x8unorm yields RGBA.
func AppendCompactSplats(b []byte, splats []kernels.CompactSplat) []byte {
	for i := range splats {
		s := &splats[i]
		b = appendFloats(b, s.Position[0], s.Position[1], s.Position[2], 1)
		b = appendFloats(b, s.U1[0], s.U1[1], s.U2[0], s.U2[1])
		b = appendFloats(b, s.U3[0], s.U3[1])
		b = append(b, s.Color[:]...)
		b = binary.LittleEndian.AppendUint32(b, 0)
	}
	return b
}

// AppendPositions appends positions as packed xyz triples.
func AppendPositions(b []byte, positions []mgl32.Vec3) []byte {
	for _, p := range positions {
		b = appendFloats(b, p[:]...)
	}
	return b
}

func appendFloats(b []byte, fs ...float32) []byte {
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, math32.Float32bits(f))
	}
	return b
}

// alignUniform rounds n up to the uniform offset alignment.
func alignUniform(n uint64) uint64 {
	return (n + uniformAlign - 1) &^ (uniformAlign - 1)
}

// uniformArena packs uniform blocks at aligned offsets of one buffer.
type uniformArena struct {
	data []byte
}

// push appends block at the next aligned offset and returns that offset.
func (a *uniformArena) push(block []byte) uint64 {
	off := alignUniform(uint64(len(a.data)))
	if pad := int(off) - len(a.data); pad > 0 {
		a.data = append(a.data, make([]byte, pad)...)
	}
	a.data = append(a.data, block...)
	return off
}
