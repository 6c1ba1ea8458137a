package splat

import "github.com/go-gl/mathgl/mgl32"

// Camera is a perspective camera looking from Position towards Target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	// FieldOfView is the vertical field of view in radians. Zero uses the
	// renderer's configured default.
	FieldOfView float32

	Near, Far float32
}

// NewCamera returns a camera with +Y up, near plane 0.1 and far plane 1000.
func NewCamera(position, target mgl32.Vec3) Camera {
	return Camera{
		Position: position,
		Target:   target,
		Up:       mgl32.Vec3{0, 1, 0},
		Near:     0.1,
		Far:      1000,
	}
}

// View returns the world-to-view matrix.
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the perspective projection for the given aspect ratio.
// fovy is used when the camera has no field of view of its own.
func (c Camera) Projection(aspect, fovy float32) mgl32.Mat4 {
	if c.FieldOfView > 0 {
		fovy = c.FieldOfView
	}
	return mgl32.Perspective(fovy, aspect, c.Near, c.Far)
}

// Uniforms derives the vertex-stage uniforms for a width×height drawable.
//
// Focal lengths are size·(P[0][0], P[1][1])/2 and the Jacobian clamp limit
// is cfg.LimitFactor·tan(fov/2) per axis.
func (c Camera) Uniforms(width, height int, model mgl32.Mat4, cfg Config) Uniforms {
	size := mgl32.Vec2{float32(width), float32(height)}
	proj := c.Projection(size[0]/size[1], cfg.FieldOfView)
	return Uniforms{
		ModelView:    c.View().Mul4(model),
		Projection:   proj,
		DrawableSize: size,
		Focal:        mgl32.Vec2{size[0] * proj[0] / 2, size[1] * proj[5] / 2},
		Limit:        mgl32.Vec2{cfg.LimitFactor / proj[0], cfg.LimitFactor / proj[5]},
		LowPassBias:  cfg.LowPassBias,
		EigenFloor:   cfg.EigenFloor,
		RadiusCap:    cfg.RadiusCap,
		CullBound:    cfg.CullBound,
	}
}
