package splat

import (
	"encoding/binary"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"

	"github.com/gogpu/splat/internal/kernels"
)

// Record sizes in bytes. Records are tightly packed and little-endian.
const (
	SplatBSize          = 32
	SplatCSize          = 26
	SplatXSize          = 32
	IndexedDistanceSize = kernels.IndexedDistanceSize
	SortUniformsSize    = kernels.SortParamsSize
)

// IndexedDistance pairs a splat index with its squared distance to the
// camera. Layout: {u32 index, f32 distance}.
type IndexedDistance = kernels.IndexedDistance

// SortUniforms describes one compare-exchange stage of the bitonic network.
// Layout: {u32 splatCount, u32 groupWidth, u32 groupHeight, u32 stepIndex}.
type SortUniforms = kernels.SortParams

// Uniforms are the per-frame vertex-stage inputs.
type Uniforms = kernels.VertexUniforms

// Counters collects submitted and culled vertex counts.
type Counters = kernels.Counters

// Half3 is a packed half-precision 3-vector.
type Half3 [3]float16.Float16

// Half4 is a packed half-precision 4-vector.
type Half4 [4]float16.Float16

// Half2 is a packed half-precision 2-vector.
type Half2 [2]float16.Float16

// NewHalf3 rounds v to half precision.
func NewHalf3(v mgl32.Vec3) Half3 {
	return Half3{float16.Fromfloat32(v[0]), float16.Fromfloat32(v[1]), float16.Fromfloat32(v[2])}
}

// NewHalf4 rounds v to half precision.
func NewHalf4(v mgl32.Vec4) Half4 {
	return Half4{float16.Fromfloat32(v[0]), float16.Fromfloat32(v[1]), float16.Fromfloat32(v[2]), float16.Fromfloat32(v[3])}
}

// NewHalf2 rounds (x, y) to half precision.
func NewHalf2(x, y float32) Half2 {
	return Half2{float16.Fromfloat32(x), float16.Fromfloat32(y)}
}

// Vec3 widens h to float32.
func (h Half3) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{h[0].Float32(), h[1].Float32(), h[2].Float32()}
}

// Vec4 widens h to float32.
func (h Half4) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{h[0].Float32(), h[1].Float32(), h[2].Float32(), h[3].Float32()}
}

// Vec2 widens h to float32.
func (h Half2) Vec2() mgl32.Vec2 {
	return mgl32.Vec2{h[0].Float32(), h[1].Float32()}
}

// SplatB is the 32-byte ".splat" file record: float3 position, float3
// scale, RGBA8 color and a rotation quaternion (w, x, y, z) stored as bytes
// biased by 128.
type SplatB struct {
	Position mgl32.Vec3
	Scale    mgl32.Vec3
	Color    [4]uint8
	Rotation [4]uint8
}

// SplatC is the 26-byte classic render record: half3 position, half4
// linear color, and the upper triangle of the 3D covariance as two half3
// values, CovA = (xx, xy, xz) and CovB = (yy, yz, zz).
type SplatC struct {
	Position Half3
	Color    Half4
	CovA     Half3
	CovB     Half3
}

// SplatX is the 32-byte compact render record: float3 position padded to
// 16 bytes, the covariance as three half2 pairs U1 = (xx, xy),
// U2 = (xz, yy), U3 = (yz, zz), and an RGBA8 color.
type SplatX struct {
	Position mgl32.Vec3
	U1       Half2
	U2       Half2
	U3       Half2
	Color    [4]uint8
}

// SplatD is the decoded, full-precision form of a splat.
type SplatD struct {
	Position mgl32.Vec3
	Scale    mgl32.Vec3
	Color    mgl32.Vec4
	Rotation mgl32.Quat
}

// =============================================================================
// SplatB
// =============================================================================

// AppendBinary appends the 32-byte record to b.
func (s SplatB) AppendBinary(b []byte) ([]byte, error) {
	b = appendVec3(b, s.Position)
	b = appendVec3(b, s.Scale)
	b = append(b, s.Color[:]...)
	return append(b, s.Rotation[:]...), nil
}

// MarshalBinary encodes the 32-byte record.
func (s SplatB) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, SplatBSize))
}

// UnmarshalBinary decodes the first 32 bytes of b.
func (s *SplatB) UnmarshalBinary(b []byte) error {
	if len(b) < SplatBSize {
		return ErrShortRecord
	}
	s.Position = readVec3(b[0:])
	s.Scale = readVec3(b[12:])
	copy(s.Color[:], b[24:28])
	copy(s.Rotation[:], b[28:32])
	return nil
}

// =============================================================================
// SplatC
// =============================================================================

// AppendBinary appends the 26-byte record to b.
func (s SplatC) AppendBinary(b []byte) ([]byte, error) {
	b = appendHalves(b, s.Position[:])
	b = appendHalves(b, s.Color[:])
	b = appendHalves(b, s.CovA[:])
	return appendHalves(b, s.CovB[:]), nil
}

// MarshalBinary encodes the 26-byte record.
func (s SplatC) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, SplatCSize))
}

// UnmarshalBinary decodes the first 26 bytes of b.
func (s *SplatC) UnmarshalBinary(b []byte) error {
	if len(b) < SplatCSize {
		return ErrShortRecord
	}
	readHalves(b[0:], s.Position[:])
	readHalves(b[6:], s.Color[:])
	readHalves(b[14:], s.CovA[:])
	readHalves(b[20:], s.CovB[:])
	return nil
}

func (s SplatC) covSplat() kernels.CovSplat {
	return kernels.CovSplat{
		Position: s.Position.Vec3(),
		Color:    s.Color.Vec4(),
		CovA:     s.CovA.Vec3(),
		CovB:     s.CovB.Vec3(),
	}
}

// =============================================================================
// SplatX
// =============================================================================

// AppendBinary appends the 32-byte record to b.
func (s SplatX) AppendBinary(b []byte) ([]byte, error) {
	b = appendVec3(b, s.Position)
	b = append(b, 0, 0, 0, 0)
	b = appendHalves(b, s.U1[:])
	b = appendHalves(b, s.U2[:])
	b = appendHalves(b, s.U3[:])
	return append(b, s.Color[:]...), nil
}

// MarshalBinary encodes the 32-byte record.
func (s SplatX) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, SplatXSize))
}

// UnmarshalBinary decodes the first 32 bytes of b. The padding after the
// position is ignored.
func (s *SplatX) UnmarshalBinary(b []byte) error {
	if len(b) < SplatXSize {
		return ErrShortRecord
	}
	s.Position = readVec3(b[0:])
	readHalves(b[16:], s.U1[:])
	readHalves(b[20:], s.U2[:])
	readHalves(b[24:], s.U3[:])
	copy(s.Color[:], b[28:32])
	return nil
}

func (s SplatX) compactSplat() kernels.CompactSplat {
	return kernels.CompactSplat{
		Position: s.Position,
		U1:       s.U1.Vec2(),
		U2:       s.U2.Vec2(),
		U3:       s.U3.Vec2(),
		Color:    s.Color,
	}
}

// =============================================================================
// Buffers
// =============================================================================

// EncodeIndexedDistances returns the packed little-endian form of records.
func EncodeIndexedDistances(records []IndexedDistance) []byte {
	return kernels.AppendIndexedDistances(make([]byte, 0, len(records)*IndexedDistanceSize), records)
}

// DecodeIndexedDistances decodes a packed IndexedDistance buffer.
func DecodeIndexedDistances(b []byte) ([]IndexedDistance, error) {
	if len(b)%IndexedDistanceSize != 0 {
		return nil, ErrShortRecord
	}
	return kernels.DecodeIndexedDistances(b), nil
}

// EncodeSortUniforms returns the packed form of one uniform block per
// stage.
func EncodeSortUniforms(stages []SortUniforms) []byte {
	b := make([]byte, 0, len(stages)*SortUniformsSize)
	for _, s := range stages {
		b = s.Append(b)
	}
	return b
}

func appendVec3(b []byte, v mgl32.Vec3) []byte {
	for _, f := range v {
		b = binary.LittleEndian.AppendUint32(b, math32.Float32bits(f))
	}
	return b
}

func readVec3(b []byte) mgl32.Vec3 {
	var v mgl32.Vec3
	for i := range v {
		v[i] = math32.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func appendHalves(b []byte, h []float16.Float16) []byte {
	for _, f := range h {
		b = binary.LittleEndian.AppendUint16(b, f.Bits())
	}
	return b
}

func readHalves(b []byte, dst []float16.Float16) {
	for i := range dst {
		dst[i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:]))
	}
}
