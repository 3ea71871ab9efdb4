// Package mesh holds CPU-side triangle meshes built from captured vertex
// streams.
package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Stride is the number of floats per interleaved vertex: position xyz then
// normal xyz.
const Stride = 6

// ArrayMesh is a non-indexed triangle list. Min and Max bound Positions.
type ArrayMesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Min, Max  mgl32.Vec3
}

// FromInterleaved splits an interleaved capture into an ArrayMesh. The stream
// must hold whole triangles.
func FromInterleaved(data []float32) (*ArrayMesh, error) {
	if len(data)%Stride != 0 {
		return nil, fmt.Errorf("interleaved stream of %d floats is not a multiple of %d", len(data), Stride)
	}
	n := len(data) / Stride
	if n%3 != 0 {
		return nil, fmt.Errorf("%d vertices do not form whole triangles", n)
	}

	m := &ArrayMesh{
		Positions: make([]mgl32.Vec3, n),
		Normals:   make([]mgl32.Vec3, n),
	}
	inf := float32(math.Inf(1))
	m.Min = mgl32.Vec3{inf, inf, inf}
	m.Max = mgl32.Vec3{-inf, -inf, -inf}
	for i := 0; i < n; i++ {
		o := i * Stride
		p := mgl32.Vec3{data[o], data[o+1], data[o+2]}
		m.Positions[i] = p
		m.Normals[i] = mgl32.Vec3{data[o+3], data[o+4], data[o+5]}
		for a := 0; a < 3; a++ {
			m.Min[a] = min(m.Min[a], p[a])
			m.Max[a] = max(m.Max[a], p[a])
		}
	}
	if n == 0 {
		m.Min, m.Max = mgl32.Vec3{}, mgl32.Vec3{}
	}
	return m, nil
}

func (m *ArrayMesh) VertexCount() int   { return len(m.Positions) }
func (m *ArrayMesh) TriangleCount() int { return len(m.Positions) / 3 }
func (m *ArrayMesh) Empty() bool        { return len(m.Positions) == 0 }
