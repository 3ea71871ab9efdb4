// Package lightcull assigns point lights to screen tiles. The per-tile test
// is shared by every backend; Culler drives it through a compute pipeline.
package lightcull

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/compute"
	"terrainstream/internal/spatial"
)

// DefaultTileSize matches the light-cull workgroup edge in pixels.
const DefaultTileSize = 16

// ViewDistance turns window depth d in [0, 1] into a positive distance along
// the view axis. invProj must come from spatial.InvPerspective.
func ViewDistance(invProj mgl32.Mat4, d float32) float32 {
	p := spatial.TransformVec4(invProj, mgl32.Vec4{0, 0, 2*d - 1, 1})
	return -p[2] / p[3]
}

type Rect struct {
	MinX, MinY, MaxX, MaxY float32
}

// TileRect returns the pixel rectangle of tile (tx, ty), clipped to the
// screen.
func TileRect(in compute.LightCullInputs, tx, ty int) Rect {
	size := in.TileSize
	return Rect{
		MinX: float32(tx * size),
		MinY: float32(ty * size),
		MaxX: float32(min((tx+1)*size, in.Depth.Width)),
		MaxY: float32(min((ty+1)*size, in.Depth.Height)),
	}
}

// DepthRange scans the tile's depth texels and returns the nearest and
// farthest view distances found.
func DepthRange(in compute.LightCullInputs, invProj mgl32.Mat4, tx, ty int) (near, far float32) {
	r := TileRect(in, tx, ty)
	lo, hi := float32(1), float32(0)
	for y := int(r.MinY); y < int(r.MaxY); y++ {
		for x := int(r.MinX); x < int(r.MaxX); x++ {
			d := in.Depth.At(x, y)
			lo = min(lo, d)
			hi = max(hi, d)
		}
	}
	if lo > hi {
		return 0, 0
	}
	return ViewDistance(invProj, lo), ViewDistance(invProj, hi)
}

// Touches reports whether light may contribute to pixels in r whose view
// distance lies in [near, far]. It errs on the side of inclusion.
func Touches(in compute.LightCullInputs, light compute.PointLight, r Rect, near, far float32) bool {
	radius := light.Radius()
	if radius <= 0 {
		return false
	}
	pos := light.Position
	vp := spatial.TransformVec4(in.View, mgl32.Vec4{pos[0], pos[1], pos[2], 1})
	dist := -vp[2]
	if dist+radius < near || dist-radius > far {
		return false
	}
	if dist <= radius {
		// The sphere contains the eye.
		return true
	}

	clip := spatial.TransformVec4(in.Projection, vp)
	w, h := float32(in.Depth.Width), float32(in.Depth.Height)
	sx := (clip[0]/clip[3]*0.5 + 0.5) * w
	sy := (clip[1]/clip[3]*0.5 + 0.5) * h

	tangent := radius / float32(math.Sqrt(float64(dist*dist-radius*radius)))
	rs := tangent * max(in.Projection[0]*0.5*w, in.Projection[5]*0.5*h)

	cx := min(max(sx, r.MinX), r.MaxX)
	cy := min(max(sy, r.MinY), r.MaxY)
	dx, dy := sx-cx, sy-cy
	return dx*dx+dy*dy <= rs*rs
}

// CullTile returns the indices of lights touching tile (tx, ty).
func CullTile(in compute.LightCullInputs, invProj mgl32.Mat4, tx, ty int) []uint32 {
	near, far := DepthRange(in, invProj, tx, ty)
	r := TileRect(in, tx, ty)
	var out []uint32
	for i, l := range in.Lights {
		if Touches(in, l, r, near, far) {
			out = append(out, uint32(i))
		}
	}
	return out
}
