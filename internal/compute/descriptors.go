package compute

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture is a CPU-side integer lookup texture. Backends upload it as an
// R32I 2D texture or read it directly.
type Texture struct {
	Name   string
	Width  int
	Height int
	Data   []int32
}

func (t *Texture) At(x, y int) int32 {
	return t.Data[y*t.Width+x]
}

func (t *Texture) Validate() error {
	if t == nil {
		return fmt.Errorf("texture not bound")
	}
	if t.Width <= 0 || t.Height <= 0 || len(t.Data) != t.Width*t.Height {
		return fmt.Errorf("texture %s: %dx%d does not match %d texels", t.Name, t.Width, t.Height, len(t.Data))
	}
	return nil
}

// DensityField is sampled by the software terrain kernel. Positive values are
// solid.
type DensityField interface {
	Sample(p mgl32.Vec3) float32
}

// TerrainGenInputs is everything bound before a terrain generation dispatch.
type TerrainGenInputs struct {
	Coord          [3]int
	WorldOffset    mgl32.Vec3
	ChunkSize      int
	VoxelScale     float32
	LightDir       mgl32.Vec3
	Transform      mgl32.Mat4
	Perspective    mgl32.Mat4
	View           mgl32.Mat4
	CameraPosition mgl32.Vec3
	EdgeTable      *Texture
	TriTable       *Texture
}

func (in TerrainGenInputs) Validate(groups Groups) error {
	if in.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if in.VoxelScale <= 0 {
		return fmt.Errorf("voxel scale must be positive")
	}
	for axis, n := range groups {
		if n == 0 || in.ChunkSize%int(n) != 0 {
			return fmt.Errorf("chunk size %d not divisible by %d groups on axis %d", in.ChunkSize, n, axis)
		}
	}
	if err := in.EdgeTable.Validate(); err != nil {
		return fmt.Errorf("edge table: %w", err)
	}
	if err := in.TriTable.Validate(); err != nil {
		return fmt.Errorf("triangle table: %w", err)
	}
	return nil
}

// CaptureStride is the number of floats per captured vertex: position xyz
// followed by normal xyz.
const CaptureStride = 6

// Capture is the interleaved vertex stream recorded by a terrain dispatch.
type Capture struct {
	Interleaved []float32
	Vertices    int
}

// PointLight matches the std430 layout of the light buffer.
type PointLight struct {
	Color            mgl32.Vec4
	Position         mgl32.Vec4
	PaddingAndRadius mgl32.Vec4
}

func (l PointLight) Radius() float32 { return l.PaddingAndRadius[3] }

// DepthMap holds window-space depth in [0, 1], row 0 at the bottom.
type DepthMap struct {
	Width  int
	Height int
	Depth  []float32
}

func (d DepthMap) At(x, y int) float32 { return d.Depth[y*d.Width+x] }

type LightCullInputs struct {
	Depth      DepthMap
	Lights     []PointLight
	Projection mgl32.Mat4
	View       mgl32.Mat4
	TileSize   int
}

// TileLights lists, per screen tile in row-major order, the indices of the
// lights that may touch it.
type TileLights struct {
	TilesX int
	TilesY int
	Lights [][]uint32
}

func (t TileLights) Tile(x, y int) []uint32 { return t.Lights[y*t.TilesX+x] }

// TileCount returns how many tiles of size px cover a screen dimension.
func TileCount(pixels, size int) int {
	if size <= 0 {
		return 0
	}
	return (pixels + size - 1) / size
}
