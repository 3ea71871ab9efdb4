package lightcull

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/compute"
	"terrainstream/internal/spatial"
)

func windowDepth(proj mgl32.Mat4, dist float32) float32 {
	clip := spatial.TransformVec4(proj, mgl32.Vec4{0, 0, -dist, 1})
	return (clip[2]/clip[3] + 1) / 2
}

func uniformDepth(w, h int, d float32) compute.DepthMap {
	m := compute.DepthMap{Width: w, Height: h, Depth: make([]float32, w*h)}
	for i := range m.Depth {
		m.Depth[i] = d
	}
	return m
}

func light(x, y, z, r float32) compute.PointLight {
	return compute.PointLight{
		Color:            mgl32.Vec4{1, 1, 1, 1},
		Position:         mgl32.Vec4{x, y, z, 1},
		PaddingAndRadius: mgl32.Vec4{0, 0, 0, r},
	}
}

func approx(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-2 }

func TestViewDistance(t *testing.T) {
	proj := spatial.Perspective(90, 1, 0.1, 100)
	inv := spatial.InvPerspective(proj)
	if got := ViewDistance(inv, 0); !approx(got, 0.1) {
		t.Fatalf("near distance %v", got)
	}
	if got := ViewDistance(inv, 1); math.Abs(float64(got-100)) > 0.5 {
		t.Fatalf("far distance %v", got)
	}
	if got := ViewDistance(inv, windowDepth(proj, 10)); !approx(got, 10) {
		t.Fatalf("mid distance %v", got)
	}
}

// sequentialKernel runs every tile inline.
type sequentialKernel struct{}

func (sequentialKernel) Dispatch(_ context.Context, _ *compute.Program, groups compute.Groups, in compute.LightCullInputs) (compute.Fence[compute.TileLights], error) {
	inv := spatial.InvPerspective(in.Projection)
	out := compute.TileLights{TilesX: int(groups[0]), TilesY: int(groups[1])}
	out.Lights = make([][]uint32, out.TilesX*out.TilesY)
	for ty := 0; ty < out.TilesY; ty++ {
		for tx := 0; tx < out.TilesX; tx++ {
			out.Lights[ty*out.TilesX+tx] = CullTile(in, inv, tx, ty)
		}
	}
	return compute.Resolved(out, nil), nil
}

type okDevice struct{ fail bool }

func (d okDevice) CompileAndLink(compute.ProgramSpec, map[string][]byte) (compute.ProgramHandle, error) {
	if d.fail {
		return 0, &compute.LinkError{Program: "light_cull", Log: "no main"}
	}
	return 1, nil
}
func (okDevice) UniformLocation(compute.ProgramHandle, string) compute.Location { return 0 }
func (okDevice) DeleteProgram(compute.ProgramHandle)                            {}

type srcReader struct{}

func (srcReader) ReadShaderSource(string) ([]byte, error) { return []byte("#version 430\n"), nil }

func newCuller(t *testing.T, fail bool) *Culler {
	t.Helper()
	logger := log.New(&bytes.Buffer{}, "", 0)
	p := compute.NewPipeline[compute.LightCullInputs, compute.TileLights](
		compute.LightCullProgram(), okDevice{fail: fail}, srcReader{}, sequentialKernel{}, compute.Options{Logger: logger})
	return NewCuller(p, 16)
}

func contains(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestCullAssignsLightsToTiles(t *testing.T) {
	proj := spatial.Perspective(90, 1, 0.1, 100)
	depth := uniformDepth(64, 64, windowDepth(proj, 10))
	lights := []compute.PointLight{
		light(0, 0, -10, 2), // in front of the centre tiles
		light(0, 0, 10, 2),  // behind the camera
		light(0, 0, -50, 2), // hidden behind the depth buffer
		light(0, 0, 0, 20),  // surrounds the camera
	}

	out, err := newCuller(t, false).Cull(context.Background(), depth, lights, proj, mgl32.Ident4())
	if err != nil {
		t.Fatalf("cull: %v", err)
	}
	if out.TilesX != 4 || out.TilesY != 4 {
		t.Fatalf("tiles %dx%d", out.TilesX, out.TilesY)
	}

	for _, tile := range [][2]int{{1, 1}, {2, 1}, {1, 2}, {2, 2}} {
		if !contains(out.Tile(tile[0], tile[1]), 0) {
			t.Fatalf("centre tile %v misses light 0: %v", tile, out.Tile(tile[0], tile[1]))
		}
	}
	if contains(out.Tile(0, 0), 0) {
		t.Fatalf("corner tile should not see light 0")
	}
	for i, ids := range out.Lights {
		if contains(ids, 1) || contains(ids, 2) {
			t.Fatalf("tile %d lists a culled light: %v", i, ids)
		}
		if !contains(ids, 3) {
			t.Fatalf("tile %d misses the surrounding light", i)
		}
	}
}

func TestCullDisabledPipeline(t *testing.T) {
	c := newCuller(t, true)
	if c.Available() {
		t.Fatalf("culler should be unavailable")
	}
	proj := spatial.Perspective(90, 1, 0.1, 100)
	_, err := c.Cull(context.Background(), uniformDepth(16, 16, 1), nil, proj, mgl32.Ident4())
	if !errors.Is(err, compute.ErrPipelineDisabled) {
		t.Fatalf("expected ErrPipelineDisabled, got %v", err)
	}
}

func TestCullRejectsBadDepthMap(t *testing.T) {
	_, err := newCuller(t, false).Cull(context.Background(), compute.DepthMap{Width: 4, Height: 4}, nil, mgl32.Ident4(), mgl32.Ident4())
	if err == nil {
		t.Fatalf("expected error for empty depth texels")
	}
}

func TestTileRectClipsToScreen(t *testing.T) {
	in := compute.LightCullInputs{Depth: uniformDepth(40, 20, 1), TileSize: 16}
	r := TileRect(in, 2, 1)
	if r != (Rect{MinX: 32, MinY: 16, MaxX: 40, MaxY: 20}) {
		t.Fatalf("rect %+v", r)
	}
}
