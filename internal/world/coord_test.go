package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestOriginOf(t *testing.T) {
	tests := []struct {
		coord ChunkCoord
		want  mgl32.Vec3
	}{
		{ChunkCoord{0, 0, 0}, mgl32.Vec3{0, 0, 0}},
		{ChunkCoord{1, 0, 0}, mgl32.Vec3{64, 0, 0}},
		{ChunkCoord{-1, 2, -3}, mgl32.Vec3{-64, 128, -192}},
	}
	for _, tt := range tests {
		if got := OriginOf(tt.coord); got != tt.want {
			t.Fatalf("OriginOf(%v) = %v, want %v", tt.coord, got, tt.want)
		}
	}
}

func TestOriginIsInjectiveAndAligned(t *testing.T) {
	seen := make(map[mgl32.Vec3]ChunkCoord)
	for _, c := range Neighborhood(ChunkCoord{}, 3, 2) {
		o := OriginOf(c)
		if prev, ok := seen[o]; ok {
			t.Fatalf("%v and %v share origin %v", prev, c, o)
		}
		seen[o] = c
		for a := 0; a < 3; a++ {
			if int(o[a])%ChunkSize != 0 {
				t.Fatalf("origin %v of %v not aligned", o, c)
			}
		}
		if back := ChunkAt(o); back != c {
			t.Fatalf("ChunkAt(OriginOf(%v)) = %v", c, back)
		}
	}
}

func TestChunkAtNegativePositions(t *testing.T) {
	tests := []struct {
		p    mgl32.Vec3
		want ChunkCoord
	}{
		{mgl32.Vec3{0, 0, 0}, ChunkCoord{0, 0, 0}},
		{mgl32.Vec3{63.9, 10, 64}, ChunkCoord{0, 0, 1}},
		{mgl32.Vec3{-0.5, -64, -64.5}, ChunkCoord{-1, -1, -2}},
		{mgl32.Vec3{-128, 200, 1}, ChunkCoord{-2, 3, 0}},
	}
	for _, tt := range tests {
		if got := ChunkAt(tt.p); got != tt.want {
			t.Fatalf("ChunkAt(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestChunkBoundsAndCenter(t *testing.T) {
	min, max := ChunkBounds(ChunkCoord{1, -1, 0})
	if min != (mgl32.Vec3{64, -64, 0}) || max != (mgl32.Vec3{128, 0, 64}) {
		t.Fatalf("bounds %v %v", min, max)
	}
	if c := Center(ChunkCoord{}); c != (mgl32.Vec3{32, 32, 32}) {
		t.Fatalf("center %v", c)
	}
}

func TestNeighborhood(t *testing.T) {
	n := Neighborhood(ChunkCoord{5, 0, 5}, 1, 0)
	if len(n) != 9 {
		t.Fatalf("got %d chunks", len(n))
	}
	if n[0] != (ChunkCoord{4, 0, 4}) || n[8] != (ChunkCoord{6, 0, 6}) {
		t.Fatalf("unexpected order %v", n)
	}
	if Neighborhood(ChunkCoord{}, -1, 0) != nil {
		t.Fatalf("negative radius should give nothing")
	}
}

func TestWorkgroupDividesChunk(t *testing.T) {
	if ChunkSize%ChunkWorkgroupSize != 0 {
		t.Fatalf("chunk size %d not a multiple of workgroup %d", ChunkSize, ChunkWorkgroupSize)
	}
}
