// Package world maps chunk coordinates to world space and keeps the
// fixed-capacity cache of resident terrain chunks.
package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// ChunkSize is the edge length of a chunk in world units and voxels.
	ChunkSize = 64
	// ChunkWorkgroupSize is the per-axis workgroup size of a generation
	// dispatch; ChunkSize must be a multiple of it.
	ChunkWorkgroupSize = 16
	// MaxLoadedChunks is the default number of chunk slots.
	MaxLoadedChunks = 32
)

// ChunkCoord identifies a chunk in chunk space. Equality is the cache key.
type ChunkCoord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (c ChunkCoord) String() string { return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z) }

// OriginOf returns the world-space minimum corner of c.
func OriginOf(c ChunkCoord) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(c.X * ChunkSize),
		float32(c.Y * ChunkSize),
		float32(c.Z * ChunkSize),
	}
}

// ChunkBounds returns the world-space box covered by c.
func ChunkBounds(c ChunkCoord) (min, max mgl32.Vec3) {
	min = OriginOf(c)
	max = min.Add(mgl32.Vec3{ChunkSize, ChunkSize, ChunkSize})
	return min, max
}

// Center is the world-space centre of c.
func Center(c ChunkCoord) mgl32.Vec3 {
	const half = ChunkSize / 2
	return OriginOf(c).Add(mgl32.Vec3{half, half, half})
}

// ChunkAt returns the chunk containing world position p.
func ChunkAt(p mgl32.Vec3) ChunkCoord {
	return ChunkCoord{
		X: floorDiv(p[0], ChunkSize),
		Y: floorDiv(p[1], ChunkSize),
		Z: floorDiv(p[2], ChunkSize),
	}
}

// Neighborhood lists the chunks within radius of center on X and Z and
// within vertical on Y, in x, y, z order.
func Neighborhood(center ChunkCoord, radius, vertical int) []ChunkCoord {
	if radius < 0 || vertical < 0 {
		return nil
	}
	out := make([]ChunkCoord, 0, (2*radius+1)*(2*radius+1)*(2*vertical+1))
	for x := center.X - radius; x <= center.X+radius; x++ {
		for y := center.Y - vertical; y <= center.Y+vertical; y++ {
			for z := center.Z - radius; z <= center.Z+radius; z++ {
				out = append(out, ChunkCoord{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

func floorDiv(value float32, size int) int {
	if size <= 0 {
		return 0
	}
	v := int(value)
	if float32(v) > value {
		v--
	}
	if v >= 0 {
		return v / size
	}
	return -((-v - 1) / size) - 1
}
