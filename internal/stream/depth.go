package stream

import (
	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/compute"
	"terrainstream/internal/spatial"
)

// SplatDepth builds a coarse window-depth map by projecting every vertex of
// the render set and keeping the nearest depth per pixel. Uncovered pixels
// stay at the far plane.
func SplatDepth(width, height int, viewProj mgl32.Mat4, items []RenderItem) compute.DepthMap {
	m := compute.DepthMap{Width: width, Height: height, Depth: make([]float32, width*height)}
	for i := range m.Depth {
		m.Depth[i] = 1
	}
	w, h := float32(width), float32(height)
	for _, item := range items {
		if item.Mesh == nil {
			continue
		}
		mvp := spatial.Mul(viewProj, item.Model)
		for _, p := range item.Mesh.Positions {
			clip := spatial.TransformVec4(mvp, p.Vec4(1))
			if clip[3] <= 0 {
				continue
			}
			ndc := clip.Vec3().Mul(1 / clip[3])
			if ndc[2] < -1 || ndc[2] > 1 {
				continue
			}
			x := int((ndc[0]*0.5 + 0.5) * w)
			y := int((ndc[1]*0.5 + 0.5) * h)
			if x < 0 || x >= width || y < 0 || y >= height {
				continue
			}
			d := ndc[2]*0.5 + 0.5
			if i := y*width + x; d < m.Depth[i] {
				m.Depth[i] = d
			}
		}
	}
	return m
}
