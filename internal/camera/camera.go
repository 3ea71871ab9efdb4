// Package camera turns a first-person camera pose into view and projection
// matrices.
package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/config"
	"terrainstream/internal/spatial"
)

var (
	worldUp      = mgl32.Vec3{0, 1, 0}
	worldRight   = mgl32.Vec3{1, 0, 0}
	localForward = mgl32.Vec3{0, 0, -1}
)

// Camera is a yaw/pitch camera. Angles are in degrees; yaw turns about +Y,
// pitch about the camera's +X. Pitch is clamped short of straight up/down.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	FOV      float32
	Aspect   float32
	Near     float32
	Far      float32
}

const maxPitch = 89

func FromConfig(cfg config.CameraConfig) Camera {
	c := Camera{
		Position: mgl32.Vec3(cfg.Position),
		Yaw:      cfg.Yaw,
		FOV:      cfg.FOV,
		Aspect:   cfg.Aspect,
		Near:     cfg.Near,
		Far:      cfg.Far,
	}
	c.SetPitch(cfg.Pitch)
	return c
}

func (c *Camera) SetPitch(deg float32) {
	c.Pitch = mgl32.Clamp(deg, -maxPitch, maxPitch)
}

// Orientation is pitch applied first, then yaw.
func (c Camera) Orientation() mgl32.Quat {
	yaw := spatial.QuatFromAxisAngle(worldUp, mgl32.DegToRad(c.Yaw))
	pitch := spatial.QuatFromAxisAngle(worldRight, mgl32.DegToRad(c.Pitch))
	return spatial.QuatMul(yaw, pitch)
}

func (c Camera) Forward() mgl32.Vec3 {
	return spatial.RotateVec3(c.Orientation(), localForward)
}

func (c Camera) Right() mgl32.Vec3 {
	return spatial.RotateVec3(c.Orientation(), worldRight)
}

func (c Camera) Up() mgl32.Vec3 {
	return spatial.RotateVec3(c.Orientation(), worldUp)
}

// View maps world space into eye space: the inverse of the camera pose.
func (c Camera) View() mgl32.Mat4 {
	rot := spatial.Mat4FromQuat(spatial.QuatConjugate(c.Orientation()))
	return spatial.Mul(rot, spatial.Translate(c.Position.Mul(-1)))
}

func (c Camera) Projection() mgl32.Mat4 {
	return spatial.Perspective(c.FOV, c.Aspect, c.Near, c.Far)
}

func (c Camera) ViewProjection() mgl32.Mat4 {
	return spatial.Mul(c.Projection(), c.View())
}

// Move translates the camera along its own axes.
func (c *Camera) Move(forward, right, up float32) {
	delta := spatial.ScaleVec3(c.Forward(), forward).
		Add(spatial.ScaleVec3(c.Right(), right)).
		Add(spatial.ScaleVec3(c.Up(), up))
	c.Position = c.Position.Add(delta)
}

// Turn adds to yaw and pitch, keeping yaw in [0, 360).
func (c *Camera) Turn(yaw, pitch float32) {
	c.Yaw = wrapDegrees(c.Yaw + yaw)
	c.SetPitch(c.Pitch + pitch)
}

func wrapDegrees(d float32) float32 {
	for d >= 360 {
		d -= 360
	}
	for d < 0 {
		d += 360
	}
	return d
}
