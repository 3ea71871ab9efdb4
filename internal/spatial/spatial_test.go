package spatial

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

// Absolute tolerances; ApproxEqualThreshold turns relative at zero and
// rejects plain float32 rounding.
func vec3Near(a, b mgl32.Vec3) bool { return a.Sub(b).Len() < eps }

func vec4Near(a, b mgl32.Vec4) bool { return a.Sub(b).Len() < eps }

func mat4Near(a, b mgl32.Mat4) bool {
	for i := range a {
		if d := a[i] - b[i]; d >= eps || d <= -eps {
			return false
		}
	}
	return true
}

func quatNear(a, b mgl32.Quat) bool {
	return vec4Near(mgl32.Vec4{a.W, a.V[0], a.V[1], a.V[2]}, mgl32.Vec4{b.W, b.V[0], b.V[1], b.V[2]})
}

func TestRotateUnitXAboutY(t *testing.T) {
	q := QuatFromAxisAngle(mgl32.Vec3{0, 1, 0}, math.Pi/2)
	m := Mat4FromQuat(q)
	got := TransformVec4(m, mgl32.Vec4{1, 0, 0, 1}).Vec3()
	if want := (mgl32.Vec3{0, 0, -1}); !vec3Near(got, want) {
		t.Fatalf("rotated vector: got %v want %v", got, want)
	}
	if r := RotateVec3(q, mgl32.Vec3{1, 0, 0}); !vec3Near(r, mgl32.Vec3{0, 0, -1}) {
		t.Fatalf("RotateVec3: got %v", r)
	}
}

func TestMat4FromQuatMatchesMathgl(t *testing.T) {
	axes := []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, mgl32.Vec3{1, 2, 3}.Normalize()}
	for _, axis := range axes {
		for _, angle := range []float32{0, 0.3, 1.2, math.Pi, -2.5} {
			q := QuatFromAxisAngle(axis, angle)
			ref := mgl32.QuatRotate(angle, axis).Mat4()
			if got := Mat4FromQuat(q); !mat4Near(got, ref) {
				t.Fatalf("axis %v angle %v: got %v want %v", axis, angle, got, ref)
			}
		}
	}
}

func TestQuatMulIsNotCommutative(t *testing.T) {
	a := QuatFromAxisAngle(mgl32.Vec3{1, 0, 0}, math.Pi/2)
	b := QuatFromAxisAngle(mgl32.Vec3{0, 1, 0}, math.Pi/2)

	ab := QuatMul(a, b)
	ba := QuatMul(b, a)
	if quatNear(ab, ba) {
		t.Fatalf("expected a·b != b·a, both %v", ab)
	}
	if ref := a.Mul(b); !quatNear(ab, ref) {
		t.Fatalf("hamilton product: got %v want %v", ab, ref)
	}
}

func TestQuatConjugateInvertsRotation(t *testing.T) {
	q := QuatFromAxisAngle(mgl32.Vec3{0, 0, 1}, 0.7)
	v := mgl32.Vec3{3, -1, 2}
	back := RotateVec3(QuatConjugate(q), RotateVec3(q, v))
	if !vec3Near(back, v) {
		t.Fatalf("round trip: got %v want %v", back, v)
	}
}

func TestPerspectiveMatchesMathgl(t *testing.T) {
	got := Perspective(70, 16.0/9.0, 0.1, 1000)
	want := mgl32.Perspective(mgl32.DegToRad(70), 16.0/9.0, 0.1, 1000)
	if !mat4Near(got, want) {
		t.Fatalf("perspective: got %v want %v", got, want)
	}
}

func TestInvPerspectiveIsInverse(t *testing.T) {
	tests := []struct {
		fov, aspect, near, far float32
	}{
		{45, 1, 0.1, 100},
		{70, 16.0 / 9.0, 0.5, 2000},
		{90, 4.0 / 3.0, 1, 10},
	}
	for _, tt := range tests {
		p := Perspective(tt.fov, tt.aspect, tt.near, tt.far)
		inv := InvPerspective(p)
		if got := Mul(p, inv); !mat4Near(got, mgl32.Ident4()) {
			t.Fatalf("P·inv != I for %+v: %v", tt, got)
		}
		if got := Mul(inv, p); !mat4Near(got, mgl32.Ident4()) {
			t.Fatalf("inv·P != I for %+v: %v", tt, got)
		}
	}
}

func TestMulIdentity(t *testing.T) {
	m := Mul(Translate(mgl32.Vec3{1, 2, 3}), Scale(mgl32.Vec3{2, 2, 2}))
	if got := Mul(m, Identity()); got != m {
		t.Fatalf("M·I: got %v want %v", got, m)
	}
	if got := Mul(Identity(), m); got != m {
		t.Fatalf("I·M: got %v want %v", got, m)
	}
	ref := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
	if !mat4Near(m, ref) {
		t.Fatalf("composition: got %v want %v", m, ref)
	}
}

func TestMulAllowsAliasedDestination(t *testing.T) {
	m := Translate(mgl32.Vec3{1, 0, 0})
	want := Translate(mgl32.Vec3{2, 0, 0})
	m = Mul(m, m)
	if m != want {
		t.Fatalf("aliased multiply: got %v want %v", m, want)
	}
}

func TestRowExtraction(t *testing.T) {
	m := Translate(mgl32.Vec3{5, 6, 7})
	if got, want := Row(m, 0), (mgl32.Vec4{1, 0, 0, 5}); got != want {
		t.Fatalf("row 0: got %v want %v", got, want)
	}
	for i := 0; i < 4; i++ {
		if Row(m, i) != m.Row(i) {
			t.Fatalf("row %d disagrees with mathgl", i)
		}
	}
}

func TestOrthoMatchesMathgl(t *testing.T) {
	got := Ortho(-10, 10, -5, 5, 0.1, 50)
	want := mgl32.Ortho(-10, 10, -5, 5, 0.1, 50)
	if !mat4Near(got, want) {
		t.Fatalf("ortho: got %v want %v", got, want)
	}
}

func TestVectorOps(t *testing.T) {
	a := mgl32.Vec3{1, 2, 3}
	b := mgl32.Vec3{4, 5, 6}
	if got := MulVec3(a, b); got != (mgl32.Vec3{4, 10, 18}) {
		t.Fatalf("component-wise mul: %v", got)
	}
	if got := MulVec2(mgl32.Vec2{2, 3}, mgl32.Vec2{4, -1}); got != (mgl32.Vec2{8, -3}) {
		t.Fatalf("component-wise mul vec2: %v", got)
	}
	if got := MulVec4(mgl32.Vec4{1, 2, 3, 4}, mgl32.Vec4{2, 0, -1, 0.5}); got != (mgl32.Vec4{2, 0, -3, 2}) {
		t.Fatalf("component-wise mul vec4: %v", got)
	}
	if got := DotVec3(a, b); got != 32 {
		t.Fatalf("dot: %v", got)
	}
	if got := CrossVec3(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}); got != (mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("cross: %v", got)
	}
	if got := MagVec3(mgl32.Vec3{3, 4, 0}); got != 5 {
		t.Fatalf("magnitude: %v", got)
	}
	if got := MagVec2(mgl32.Vec2{3, 4}); got != 5 {
		t.Fatalf("magnitude vec2: %v", got)
	}
	if got := NormalizeVec3(mgl32.Vec3{0, 0, 9}); got != (mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("normalize: %v", got)
	}
	if got := NormalizeVec3(mgl32.Vec3{}); got != (mgl32.Vec3{}) {
		t.Fatalf("normalize zero should stay zero: %v", got)
	}
	if Clamp01(-1) != 0 || Clamp01(2) != 1 || Clamp01(0.25) != 0.25 {
		t.Fatalf("clamp01 out of range")
	}
}
