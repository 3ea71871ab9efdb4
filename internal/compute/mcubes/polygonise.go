package mcubes

import (
	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/compute"
)

// TriStride is the row width of the triangle texture: every triangle of the
// largest configuration plus a -1 terminator.
func TriStride() int { return MaxTriangles*3 + 1 }

// EdgeTexture encodes EdgeTable as a 256x1 texture.
func EdgeTexture() *compute.Texture {
	t := &compute.Texture{Name: "mcubesLookup", Width: 256, Height: 1, Data: make([]int32, 256)}
	for c, mask := range EdgeTable {
		t.Data[c] = int32(mask)
	}
	return t
}

// TriTexture encodes TriTable as a TriStride x 256 texture, unused entries -1.
func TriTexture() *compute.Texture {
	stride := TriStride()
	t := &compute.Texture{Name: "mcubesLookup2", Width: stride, Height: 256, Data: make([]int32, stride*256)}
	for i := range t.Data {
		t.Data[i] = -1
	}
	for c, tris := range TriTable {
		for i, e := range tris {
			t.Data[c*stride+i] = int32(e)
		}
	}
	return t
}

type Triangle [3]mgl32.Vec3

// Interpolate places the iso crossing on the segment p1-p2. Endpoints are
// ordered first so both cells sharing an edge compute identical bits.
func Interpolate(p1, p2 mgl32.Vec3, v1, v2, iso float32) mgl32.Vec3 {
	if less(p2, p1) {
		p1, p2 = p2, p1
		v1, v2 = v2, v1
	}
	if v1 == v2 {
		return p1.Add(p2).Mul(0.5)
	}
	t := (iso - v1) / (v2 - v1)
	return p1.Add(p2.Sub(p1).Mul(t))
}

func less(a, b mgl32.Vec3) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

// Polygonise returns the triangles of one cell. Winding follows the table
// and is not oriented; callers orient against the field gradient.
func Polygonise(values [8]float32, corners [8]mgl32.Vec3, iso float32) []Triangle {
	c := Config(values, iso)
	mask := EdgeTable[c]
	if mask == 0 {
		return nil
	}

	var verts [12]mgl32.Vec3
	for e, ends := range EdgeCorners {
		if mask&(1<<e) == 0 {
			continue
		}
		a, b := ends[0], ends[1]
		verts[e] = Interpolate(corners[a], corners[b], values[a], values[b], iso)
	}

	tris := TriTable[c]
	out := make([]Triangle, 0, len(tris)/3)
	for i := 0; i+2 < len(tris); i += 3 {
		out = append(out, Triangle{verts[tris[i]], verts[tris[i+1]], verts[tris[i+2]]})
	}
	return out
}
