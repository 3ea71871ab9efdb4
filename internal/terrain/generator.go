package terrain

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/compute"
	"terrainstream/internal/compute/mcubes"
	"terrainstream/internal/entities"
	"terrainstream/internal/mesh"
	"terrainstream/internal/spatial"
	"terrainstream/internal/world"
)

type Pipeline = compute.Pipeline[compute.TerrainGenInputs, compute.Capture]

// CameraState is the view bound alongside every generation dispatch.
type CameraState struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Position   mgl32.Vec3
	// LightDir overrides the generator's light direction when non-zero.
	LightDir mgl32.Vec3
}

type GeneratorOptions struct {
	// Cells is the number of voxels along each chunk axis.
	Cells      int
	Workgroup  int
	VoxelScale float32
	LightDir   mgl32.Vec3
	Logger     *log.Logger
}

type GeneratorStats struct {
	Generated uint64 `json:"generated"`
	Empty     uint64 `json:"empty"`
	Failed    uint64 `json:"failed"`
	Vertices  uint64 `json:"vertices"`
}

// Generator turns chunk requests into entities by running the terrain
// generation pipeline. It implements world.Generator.
type Generator struct {
	pipeline   *Pipeline
	pool       *entities.Pool
	edges      *compute.Texture
	tris       *compute.Texture
	cells      int
	groups     compute.Groups
	voxelScale float32
	lightDir   mgl32.Vec3
	logger     *log.Logger

	mu     sync.RWMutex
	camera CameraState

	generated atomic.Uint64
	empty     atomic.Uint64
	failed    atomic.Uint64
	vertices  atomic.Uint64
}

func NewGenerator(p *Pipeline, pool *entities.Pool, opts GeneratorOptions) (*Generator, error) {
	if opts.VoxelScale <= 0 {
		opts.VoxelScale = 1
	}
	if opts.Cells <= 0 {
		opts.Cells = int(float32(world.ChunkSize) / opts.VoxelScale)
	}
	if opts.Workgroup <= 0 {
		opts.Workgroup = world.ChunkWorkgroupSize
	}
	if opts.Cells%opts.Workgroup != 0 {
		return nil, fmt.Errorf("%d cells per chunk do not split into workgroups of %d", opts.Cells, opts.Workgroup)
	}
	if opts.LightDir == (mgl32.Vec3{}) {
		opts.LightDir = mgl32.Vec3{0, 1, 0}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Generator{
		pipeline:   p,
		pool:       pool,
		edges:      mcubes.EdgeTexture(),
		tris:       mcubes.TriTexture(),
		cells:      opts.Cells,
		groups:     compute.ChunkGroups(opts.Cells, opts.Workgroup),
		voxelScale: opts.VoxelScale,
		lightDir:   spatial.NormalizeVec3(opts.LightDir),
		logger:     opts.Logger,
		camera: CameraState{
			View:       mgl32.Ident4(),
			Projection: mgl32.Ident4(),
		},
	}, nil
}

func (g *Generator) SetCamera(c CameraState) {
	g.mu.Lock()
	g.camera = c
	g.mu.Unlock()
}

func (g *Generator) Groups() compute.Groups { return g.groups }

// Generate dispatches the chunk at origin, waits for the capture and stores
// the mesh as a new entity. A chunk with no surface still gets an entity so
// it counts as resident.
func (g *Generator) Generate(ctx context.Context, coord world.ChunkCoord, origin mgl32.Vec3) (entities.Handle, error) {
	g.mu.RLock()
	cam := g.camera
	g.mu.RUnlock()

	lightDir := g.lightDir
	if cam.LightDir != (mgl32.Vec3{}) {
		lightDir = spatial.NormalizeVec3(cam.LightDir)
	}
	model := spatial.Translate(origin)
	in := compute.TerrainGenInputs{
		Coord:          [3]int{coord.X, coord.Y, coord.Z},
		WorldOffset:    origin,
		ChunkSize:      g.cells,
		VoxelScale:     g.voxelScale,
		LightDir:       lightDir,
		Transform:      model,
		Perspective:    cam.Projection,
		View:           cam.View,
		CameraPosition: cam.Position,
		EdgeTable:      g.edges,
		TriTable:       g.tris,
	}

	capture, err := g.pipeline.Run(ctx, g.groups, in)
	if err != nil {
		g.failed.Add(1)
		return entities.Handle{}, fmt.Errorf("generate chunk %s: %w", coord, err)
	}
	m, err := mesh.FromInterleaved(capture.Interleaved)
	if err != nil {
		g.failed.Add(1)
		return entities.Handle{}, fmt.Errorf("generate chunk %s: %w", coord, err)
	}

	h, err := g.pool.Acquire(entities.Entity{
		Label:  "chunk " + coord.String(),
		Mesh:   m,
		Model:  model,
		Origin: origin,
	})
	if err != nil {
		g.failed.Add(1)
		return entities.Handle{}, fmt.Errorf("generate chunk %s: %w", coord, err)
	}

	g.generated.Add(1)
	g.vertices.Add(uint64(m.VertexCount()))
	if m.Empty() {
		g.empty.Add(1)
	}
	g.logger.Printf("generated chunk %s: %d triangles as %s", coord, m.TriangleCount(), h)
	return h, nil
}

func (g *Generator) Stats() GeneratorStats {
	return GeneratorStats{
		Generated: g.generated.Load(),
		Empty:     g.empty.Load(),
		Failed:    g.failed.Load(),
		Vertices:  g.vertices.Load(),
	}
}
