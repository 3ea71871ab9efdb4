// Package frustum extracts the six clip planes of a projection·view matrix
// and tests bounding volumes against them.
package frustum

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/spatial"
)

// Plane is the half-space A·x + B·y + C·z + D >= 0.
type Plane struct {
	A, B, C, D float32
}

// Plane indices of a Frustum.
const (
	Left = iota
	Right
	Bottom
	Top
	Near
	Far
)

// Frustum holds six planes whose positive sides face inward.
type Frustum [6]Plane

func planeFromRow(v mgl32.Vec4) Plane {
	return Plane{A: v[0], B: v[1], C: v[2], D: v[3]}
}

// Extract derives the planes of pv, usually projection·view. The planes are
// not normalized: sign tests are exact, distances are scaled by the length
// of each normal until Normalized is applied. A zero matrix yields six zero
// planes.
func Extract(pv mgl32.Mat4) Frustum {
	r0 := spatial.Row(pv, 0)
	r1 := spatial.Row(pv, 1)
	r2 := spatial.Row(pv, 2)
	r3 := spatial.Row(pv, 3)

	var f Frustum
	f[Left] = planeFromRow(spatial.AddVec4(r3, r0))
	f[Right] = planeFromRow(spatial.SubVec4(r3, r0))
	f[Bottom] = planeFromRow(spatial.AddVec4(r3, r1))
	f[Top] = planeFromRow(spatial.SubVec4(r3, r1))
	f[Near] = planeFromRow(spatial.AddVec4(r3, r2))
	f[Far] = planeFromRow(spatial.SubVec4(r3, r2))
	return f
}

// Normal returns the (unnormalized) plane normal.
func (p Plane) Normal() mgl32.Vec3 { return mgl32.Vec3{p.A, p.B, p.C} }

// Normalized scales the plane so its normal has unit length. A plane with a
// zero normal is returned as is.
func (p Plane) Normalized() Plane {
	l := float32(math.Sqrt(float64(p.A*p.A + p.B*p.B + p.C*p.C)))
	if l == 0 {
		return p
	}
	return Plane{A: p.A / l, B: p.B / l, C: p.C / l, D: p.D / l}
}

// Distance evaluates the plane equation at pt. The value is a metric
// distance only for normalized planes.
func (p Plane) Distance(pt mgl32.Vec3) float32 {
	return p.A*pt[0] + p.B*pt[1] + p.C*pt[2] + p.D
}

func (f Frustum) Normalized() Frustum {
	var out Frustum
	for i := range f {
		out[i] = f[i].Normalized()
	}
	return out
}

// ContainsPoint reports whether pt lies on the inner side of every plane.
func (f Frustum) ContainsPoint(pt mgl32.Vec3) bool {
	for i := range f {
		if f[i].Distance(pt) < 0 {
			return false
		}
	}
	return true
}

// IntersectsAABB tests the box [min, max] with the positive-vertex method.
// Only signs are compared, so normalization is not required. The test is
// conservative: boxes near frustum corners may be reported as intersecting.
func (f Frustum) IntersectsAABB(min, max mgl32.Vec3) bool {
	for i := range f {
		p := f[i]
		px := max[0]
		if p.A < 0 {
			px = min[0]
		}
		py := max[1]
		if p.B < 0 {
			py = min[1]
		}
		pz := max[2]
		if p.C < 0 {
			pz = min[2]
		}
		if p.A*px+p.B*py+p.C*pz+p.D < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere requires normalized planes; on raw planes the radius is
// compared against a scaled distance.
func (f Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for i := range f {
		if f[i].Distance(center) < -radius {
			return false
		}
	}
	return true
}
