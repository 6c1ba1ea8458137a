package splat

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Gamma is the exponent used to convert 8-bit sRGB colors to linear.
const Gamma = 2.2

// ToSplatC converts a file record to the classic render record. The color
// is converted from sRGB to linear, and the covariance is Σ = (R·S)(R·S)ᵀ
// with R from the normalized rotation quaternion and S = diag(scale).
func (s SplatB) ToSplatC() SplatC {
	rgb := mgl32.Vec3{
		math32.Pow(float32(s.Color[0])/255, Gamma),
		math32.Pow(float32(s.Color[1])/255, Gamma),
		math32.Pow(float32(s.Color[2])/255, Gamma),
	}
	alpha := float32(s.Color[3]) / 255

	q := mgl32.Quat{
		W: float32(s.Rotation[0]) - 128,
		V: mgl32.Vec3{
			float32(s.Rotation[1]) - 128,
			float32(s.Rotation[2]) - 128,
			float32(s.Rotation[3]) - 128,
		},
	}.Normalize()

	sigma := covariance3D(q, s.Scale)
	return SplatC{
		Position: NewHalf3(s.Position),
		Color:    NewHalf4(rgb.Vec4(alpha)),
		CovA:     NewHalf3(mgl32.Vec3{sigma.At(0, 0), sigma.At(0, 1), sigma.At(0, 2)}),
		CovB:     NewHalf3(mgl32.Vec3{sigma.At(1, 1), sigma.At(1, 2), sigma.At(2, 2)}),
	}
}

// ToSplatX converts a file record to the compact render record. The
// rotation bytes map to (b−128)/128 without normalization, the covariance
// is scaled by 4 and the color is copied unchanged.
func (s SplatB) ToSplatX() SplatX {
	q := mgl32.Quat{
		W: (float32(s.Rotation[0]) - 128) / 128,
		V: mgl32.Vec3{
			(float32(s.Rotation[1]) - 128) / 128,
			(float32(s.Rotation[2]) - 128) / 128,
			(float32(s.Rotation[3]) - 128) / 128,
		},
	}

	sigma := covariance3D(q, s.Scale).Mul(4)
	return SplatX{
		Position: s.Position,
		U1:       NewHalf2(sigma.At(0, 0), sigma.At(0, 1)),
		U2:       NewHalf2(sigma.At(0, 2), sigma.At(1, 1)),
		U3:       NewHalf2(sigma.At(1, 2), sigma.At(2, 2)),
		Color:    s.Color,
	}
}

// ToSplatB quantizes a decoded splat to the file record. Color channels are
// scaled by 255 and the rotation (w, x, y, z) is normalized, mapped to
// 128 ± 128 and clamped to a byte.
func (d SplatD) ToSplatB() SplatB {
	var color [4]uint8
	for i, c := range d.Color {
		color[i] = uint8(clampf(c*255, 0, 255))
	}

	q := d.Rotation
	n := q.Len()
	if n == 0 {
		q, n = mgl32.QuatIdent(), 1
	}
	v := [4]float32{q.W, q.V[0], q.V[1], q.V[2]}
	var rotation [4]uint8
	for i, c := range v {
		rotation[i] = uint8(clampf(c/n*128+128, 0, 255))
	}

	return SplatB{
		Position: d.Position,
		Scale:    d.Scale,
		Color:    color,
		Rotation: rotation,
	}
}

// ToSplatC converts a decoded splat directly to the classic render record.
// The color is used as given.
func (d SplatD) ToSplatC() SplatC {
	sigma := covariance3D(d.Rotation, d.Scale)
	return SplatC{
		Position: NewHalf3(d.Position),
		Color:    NewHalf4(d.Color),
		CovA:     NewHalf3(mgl32.Vec3{sigma.At(0, 0), sigma.At(0, 1), sigma.At(0, 2)}),
		CovB:     NewHalf3(mgl32.Vec3{sigma.At(1, 1), sigma.At(1, 2), sigma.At(2, 2)}),
	}
}

// covariance3D returns (R·S)(R·S)ᵀ for the rotation of q and S = diag(scale).
func covariance3D(q mgl32.Quat, scale mgl32.Vec3) mgl32.Mat3 {
	m := q.Mat4().Mat3().Mul3(mgl32.Diag3(scale))
	return m.Mul3(m.Transpose())
}

func clampf(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
