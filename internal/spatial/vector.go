// Package spatial holds the small vector, quaternion and matrix kernel used by
// the streaming and generation code. All values are mgl32 types so results can
// be handed to GL or the CPU kernels without conversion.
//
// Matrices are column-major with the column-vector convention: a point is
// transformed as M·v and composition Mul(a, b) applies b first. Every
// operation returns a fresh value, so writing the result over an input is
// always safe.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func AddVec2(a, b mgl32.Vec2) mgl32.Vec2 { return mgl32.Vec2{a[0] + b[0], a[1] + b[1]} }
func SubVec2(a, b mgl32.Vec2) mgl32.Vec2 { return mgl32.Vec2{a[0] - b[0], a[1] - b[1]} }
func MulVec2(a, b mgl32.Vec2) mgl32.Vec2 { return mgl32.Vec2{a[0] * b[0], a[1] * b[1]} }

func AddVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func SubVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// MulVec3 multiplies component-wise.
func MulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func ScaleVec3(a mgl32.Vec3, s float32) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * s, a[1] * s, a[2] * s}
}

func AddVec4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func SubVec4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

// MulVec4 multiplies component-wise.
func MulVec4(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

func ScaleVec4(a mgl32.Vec4, s float32) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

func DotVec3(a, b mgl32.Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func CrossVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func MagVec2(a mgl32.Vec2) float32 {
	return float32(math.Sqrt(float64(a[0]*a[0] + a[1]*a[1])))
}

// Mag2Vec3 is the squared magnitude.
func Mag2Vec3(a mgl32.Vec3) float32 { return DotVec3(a, a) }

func MagVec3(a mgl32.Vec3) float32 {
	return float32(math.Sqrt(float64(Mag2Vec3(a))))
}

// NormalizeVec3 returns a unit vector in the direction of a. The zero vector
// has no direction and is returned unchanged; callers that need a direction
// must check for it first.
func NormalizeVec3(a mgl32.Vec3) mgl32.Vec3 {
	m := MagVec3(a)
	if m == 0 {
		return a
	}
	return ScaleVec3(a, 1/m)
}

// Clamp01 clamps v into [0, 1].
func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
