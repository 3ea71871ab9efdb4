package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func Identity() mgl32.Mat4 { return mgl32.Ident4() }

// Mul composes m0·m1.
func Mul(m0, m1 mgl32.Mat4) mgl32.Mat4 {
	var d mgl32.Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m0[k*4+r] * m1[c*4+k]
			}
			d[c*4+r] = sum
		}
	}
	return d
}

// TransformVec4 transforms v by m.
func TransformVec4(m mgl32.Mat4, v mgl32.Vec4) mgl32.Vec4 {
	var out mgl32.Vec4
	for r := 0; r < 4; r++ {
		out[r] = m[r]*v[0] + m[4+r]*v[1] + m[8+r]*v[2] + m[12+r]*v[3]
	}
	return out
}

// Row returns row i (0..3) of m.
func Row(m mgl32.Mat4, i int) mgl32.Vec4 {
	return mgl32.Vec4{m[i], m[4+i], m[8+i], m[12+i]}
}

func Translate(v mgl32.Vec3) mgl32.Mat4 {
	m := mgl32.Ident4()
	m[12], m[13], m[14] = v[0], v[1], v[2]
	return m
}

func Scale(v mgl32.Vec3) mgl32.Mat4 {
	m := mgl32.Ident4()
	m[0], m[5], m[10] = v[0], v[1], v[2]
	return m
}

// Perspective builds a GL-style projection (clip z in [-w, w]) from a
// vertical field of view in degrees.
func Perspective(fovDeg, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1 / math.Tan(float64(mgl32.DegToRad(fovDeg))/2))
	nf := 1 / (near - far)

	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = (far + near) * nf
	m[11] = -1
	m[14] = 2 * far * near * nf
	return m
}

// InvPerspective inverts a matrix produced by Perspective in closed form. It
// only reads the five non-zero entries of that shape, so any other matrix
// gives a meaningless result.
func InvPerspective(p mgl32.Mat4) mgl32.Mat4 {
	a := p[0]  // (0,0)
	b := p[5]  // (1,1)
	c := p[10] // (2,2)
	e := p[11] // (3,2)
	d := p[14] // (2,3)

	var inv mgl32.Mat4
	inv[0] = 1 / a
	inv[5] = 1 / b
	inv[11] = 1 / d
	inv[14] = 1 / e
	inv[15] = -c / (d * e)
	return inv
}

// Ortho builds a GL-style orthographic projection.
func Ortho(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	rl := 1 / (right - left)
	tb := 1 / (top - bottom)
	fn := 1 / (far - near)

	m := mgl32.Ident4()
	m[0] = 2 * rl
	m[5] = 2 * tb
	m[10] = -2 * fn
	m[12] = -(right + left) * rl
	m[13] = -(top + bottom) * tb
	m[14] = -(far + near) * fn
	return m
}
