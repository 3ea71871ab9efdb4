package frustum

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/spatial"
)

func TestExtractIdentityGivesUnitCube(t *testing.T) {
	f := Extract(mgl32.Ident4())
	want := Frustum{
		Left:   {A: 1, B: 0, C: 0, D: 1},
		Right:  {A: -1, B: 0, C: 0, D: 1},
		Bottom: {A: 0, B: 1, C: 0, D: 1},
		Top:    {A: 0, B: -1, C: 0, D: 1},
		Near:   {A: 0, B: 0, C: 1, D: 1},
		Far:    {A: 0, B: 0, C: -1, D: 1},
	}
	if f != want {
		t.Fatalf("identity planes:\n got %v\nwant %v", f, want)
	}
}

func TestExtractZeroMatrix(t *testing.T) {
	f := Extract(mgl32.Mat4{})
	if f != (Frustum{}) {
		t.Fatalf("zero matrix should give zero planes, got %v", f)
	}
	if n := f.Normalized(); n != f {
		t.Fatalf("normalizing zero planes changed them: %v", n)
	}
}

func TestExtractIsNotNormalized(t *testing.T) {
	f := Extract(spatial.Scale(mgl32.Vec3{2, 2, 2}))
	if got := f[Left]; got != (Plane{A: 2, D: 1}) {
		t.Fatalf("left plane: got %v", got)
	}
	n := f[Left].Normalized()
	if n.A != 1 || n.D != 0.5 {
		t.Fatalf("normalized left plane: %v", n)
	}
}

func perspectiveFrustum() Frustum {
	proj := spatial.Perspective(90, 1, 0.1, 100)
	return Extract(proj)
}

func TestPerspectiveContainment(t *testing.T) {
	f := perspectiveFrustum()
	tests := []struct {
		name string
		pt   mgl32.Vec3
		want bool
	}{
		{"ahead", mgl32.Vec3{0, 0, -10}, true},
		{"behind", mgl32.Vec3{0, 0, 10}, false},
		{"past far plane", mgl32.Vec3{0, 0, -200}, false},
		{"off to the right", mgl32.Vec3{50, 0, -10}, false},
		{"closer than near", mgl32.Vec3{0, 0, -0.01}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsPoint(tt.pt); got != tt.want {
				t.Fatalf("ContainsPoint(%v) = %v, want %v", tt.pt, got, tt.want)
			}
		})
	}
}

func TestIntersectsAABB(t *testing.T) {
	f := perspectiveFrustum()
	tests := []struct {
		name     string
		min, max mgl32.Vec3
		want     bool
	}{
		{"fully inside", mgl32.Vec3{-1, -1, -6}, mgl32.Vec3{1, 1, -4}, true},
		{"straddles near plane", mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}, true},
		{"behind camera", mgl32.Vec3{-1, -1, 5}, mgl32.Vec3{1, 1, 6}, false},
		{"far left", mgl32.Vec3{-100, -1, -6}, mgl32.Vec3{-90, 1, -4}, false},
		{"camera inside box", mgl32.Vec3{-64, -64, -64}, mgl32.Vec3{64, 64, 64}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IntersectsAABB(tt.min, tt.max); got != tt.want {
				t.Fatalf("IntersectsAABB = %v, want %v", got, tt.want)
			}
			if got := f.Normalized().IntersectsAABB(tt.min, tt.max); got != tt.want {
				t.Fatalf("normalized IntersectsAABB = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersectsSphereNormalized(t *testing.T) {
	f := perspectiveFrustum().Normalized()
	if !f.IntersectsSphere(mgl32.Vec3{0, 0, -10}, 1) {
		t.Fatalf("sphere ahead should intersect")
	}
	if f.IntersectsSphere(mgl32.Vec3{0, 0, 10}, 1) {
		t.Fatalf("sphere behind should not intersect")
	}
	// Just behind the near plane but its radius reaches in.
	if !f.IntersectsSphere(mgl32.Vec3{0, 0, 0.5}, 1) {
		t.Fatalf("sphere reaching past near plane should intersect")
	}
}

func TestAxisAlignedViewProjection(t *testing.T) {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	f := Extract(spatial.Mul(spatial.Perspective(60, 1, 0.1, 100), view))
	if !f.ContainsPoint(mgl32.Vec3{10, 0, 0}) {
		t.Fatalf("point along +X should be visible")
	}
	if f.ContainsPoint(mgl32.Vec3{0, 0, -10}) {
		t.Fatalf("point along -Z should not be visible when looking down +X")
	}
}
