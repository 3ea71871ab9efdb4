package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFromInterleaved(t *testing.T) {
	data := []float32{
		0, 0, 0, 0, 1, 0,
		1, 0, 2, 0, 1, 0,
		0, -1, 1, 0, 1, 0,
	}
	m, err := FromInterleaved(data)
	if err != nil {
		t.Fatalf("FromInterleaved: %v", err)
	}
	if m.VertexCount() != 3 || m.TriangleCount() != 1 || m.Empty() {
		t.Fatalf("unexpected counts: %d vertices %d triangles", m.VertexCount(), m.TriangleCount())
	}
	if m.Positions[1] != (mgl32.Vec3{1, 0, 2}) || m.Normals[2] != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("streams not split: %v %v", m.Positions, m.Normals)
	}
	if m.Min != (mgl32.Vec3{0, -1, 0}) || m.Max != (mgl32.Vec3{1, 0, 2}) {
		t.Fatalf("bounds %v %v", m.Min, m.Max)
	}
}

func TestFromInterleavedRejectsRaggedStreams(t *testing.T) {
	if _, err := FromInterleaved(make([]float32, 7)); err == nil {
		t.Fatalf("expected error for partial vertex")
	}
	if _, err := FromInterleaved(make([]float32, Stride*2)); err == nil {
		t.Fatalf("expected error for partial triangle")
	}
}

func TestFromInterleavedEmpty(t *testing.T) {
	m, err := FromInterleaved(nil)
	if err != nil {
		t.Fatalf("FromInterleaved: %v", err)
	}
	if !m.Empty() || m.Min != (mgl32.Vec3{}) {
		t.Fatalf("empty mesh: %+v", m)
	}
}
