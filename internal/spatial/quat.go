package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// QuatFromAxisAngle builds the rotation of angle radians about axis. The axis
// is expected to be unit length.
func QuatFromAxisAngle(axis mgl32.Vec3, angle float32) mgl32.Quat {
	half := float64(angle) / 2
	s := float32(math.Sin(half))
	return mgl32.Quat{
		W: float32(math.Cos(half)),
		V: mgl32.Vec3{axis[0] * s, axis[1] * s, axis[2] * s},
	}
}

// QuatMul is the Hamilton product q0·q1: the rotation q1 followed by q0.
func QuatMul(q0, q1 mgl32.Quat) mgl32.Quat {
	w0, x0, y0, z0 := q0.W, q0.V[0], q0.V[1], q0.V[2]
	w1, x1, y1, z1 := q1.W, q1.V[0], q1.V[1], q1.V[2]
	return mgl32.Quat{
		W: w0*w1 - x0*x1 - y0*y1 - z0*z1,
		V: mgl32.Vec3{
			w0*x1 + x0*w1 + y0*z1 - z0*y1,
			w0*y1 - x0*z1 + y0*w1 + z0*x1,
			w0*z1 + x0*y1 - y0*x1 + z0*w1,
		},
	}
}

// QuatConjugate negates the vector part. For unit quaternions this is the
// inverse rotation.
func QuatConjugate(q mgl32.Quat) mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{-q.V[0], -q.V[1], -q.V[2]}}
}

// Mat4FromQuat expands a unit quaternion into a rotation matrix.
func Mat4FromQuat(q mgl32.Quat) mgl32.Mat4 {
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return mgl32.Mat4{
		// column 0
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0,
		// column 1
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0,
		// column 2
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0,
		// column 3
		0, 0, 0, 1,
	}
}

// RotateVec3 rotates v by the unit quaternion q.
func RotateVec3(q mgl32.Quat, v mgl32.Vec3) mgl32.Vec3 {
	p := mgl32.Quat{V: v}
	r := QuatMul(QuatMul(q, p), QuatConjugate(q))
	return r.V
}
