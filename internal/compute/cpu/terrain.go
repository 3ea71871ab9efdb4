package cpu

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/compute"
	"terrainstream/internal/compute/mcubes"
	"terrainstream/internal/spatial"
)

// TerrainKernel polygonises a density field over a chunk. Each workgroup
// owns a cube of cells; its vertices land in their own buffer and buffers
// are concatenated in workgroup order after the barrier. Positions are
// captured relative to WorldOffset.
type TerrainKernel struct {
	pool  pond.Pool
	field compute.DensityField
	iso   float32
}

func NewTerrainKernel(pool pond.Pool, field compute.DensityField) *TerrainKernel {
	return &TerrainKernel{pool: pool, field: field}
}

func (k *TerrainKernel) Dispatch(ctx context.Context, prog *compute.Program, groups compute.Groups, in compute.TerrainGenInputs) (compute.Fence[compute.Capture], error) {
	if prog.Spec.Kind != compute.KindTerrainGen {
		return nil, fmt.Errorf("program %s is %s, not terrain generation", prog.Spec.Name, prog.Spec.Kind)
	}
	if err := in.Validate(groups); err != nil {
		return nil, err
	}

	cells := [3]int{
		in.ChunkSize / int(groups[0]),
		in.ChunkSize / int(groups[1]),
		in.ChunkSize / int(groups[2]),
	}
	gx, gy := int(groups[0]), int(groups[1])
	buffers := make([][]float32, groups.Total())

	task := func(x, y, z int) error {
		buffers[(z*gy+y)*gx+x] = k.workgroup(in, [3]int{x * cells[0], y * cells[1], z * cells[2]}, cells)
		return nil
	}
	collect := func() compute.Capture {
		total := 0
		for _, b := range buffers {
			total += len(b)
		}
		out := make([]float32, 0, total)
		for _, b := range buffers {
			out = append(out, b...)
		}
		return compute.Capture{Interleaved: out, Vertices: total / compute.CaptureStride}
	}
	return dispatchGroups(ctx, k.pool, groups, task, collect), nil
}

func (k *TerrainKernel) workgroup(in compute.TerrainGenInputs, start, cells [3]int) []float32 {
	nx, ny, nz := cells[0]+1, cells[1]+1, cells[2]+1
	samples := make([]float32, nx*ny*nz)
	points := make([]mgl32.Vec3, nx*ny*nz)
	at := func(x, y, z int) int { return (z*ny+y)*nx + x }

	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				p := in.WorldOffset.Add(mgl32.Vec3{
					float32(start[0]+x) * in.VoxelScale,
					float32(start[1]+y) * in.VoxelScale,
					float32(start[2]+z) * in.VoxelScale,
				})
				i := at(x, y, z)
				points[i] = p
				samples[i] = k.field.Sample(p)
			}
		}
	}

	var out []float32
	h := in.VoxelScale * 0.5
	for z := 0; z < cells[2]; z++ {
		for y := 0; y < cells[1]; y++ {
			for x := 0; x < cells[0]; x++ {
				var values [8]float32
				var corners [8]mgl32.Vec3
				for c, o := range mcubes.CornerOffsets {
					i := at(x+o[0], y+o[1], z+o[2])
					values[c] = samples[i]
					corners[c] = points[i]
				}
				out = k.emitCell(out, in, values, corners, h)
			}
		}
	}
	return out
}

// emitCell reads the configuration from the bound lookup textures rather
// than the package tables so the kernel sees exactly what a GPU would.
func (k *TerrainKernel) emitCell(out []float32, in compute.TerrainGenInputs, values [8]float32, corners [8]mgl32.Vec3, h float32) []float32 {
	config := mcubes.Config(values, k.iso)
	mask := in.EdgeTable.At(config, 0)
	if mask == 0 {
		return out
	}

	var verts [12]mgl32.Vec3
	for e, ends := range mcubes.EdgeCorners {
		if mask&(1<<e) == 0 {
			continue
		}
		a, b := ends[0], ends[1]
		verts[e] = mcubes.Interpolate(corners[a], corners[b], values[a], values[b], k.iso)
	}

	for i := 0; i+2 < in.TriTable.Width; i += 3 {
		e0 := in.TriTable.At(i, config)
		if e0 < 0 {
			break
		}
		e1, e2 := in.TriTable.At(i+1, config), in.TriTable.At(i+2, config)
		a, b, c := verts[e0], verts[e1], verts[e2]
		na, nb, nc := k.normal(a, h), k.normal(b, h), k.normal(c, h)

		face := spatial.CrossVec3(b.Sub(a), c.Sub(a))
		if spatial.DotVec3(face, na.Add(nb).Add(nc)) < 0 {
			b, c = c, b
			nb, nc = nc, nb
		}
		out = appendVertex(out, a.Sub(in.WorldOffset), na)
		out = appendVertex(out, b.Sub(in.WorldOffset), nb)
		out = appendVertex(out, c.Sub(in.WorldOffset), nc)
	}
	return out
}

// normal points away from solid space: the negated density gradient.
func (k *TerrainKernel) normal(p mgl32.Vec3, h float32) mgl32.Vec3 {
	f := k.field
	g := mgl32.Vec3{
		f.Sample(p.Add(mgl32.Vec3{h, 0, 0})) - f.Sample(p.Sub(mgl32.Vec3{h, 0, 0})),
		f.Sample(p.Add(mgl32.Vec3{0, h, 0})) - f.Sample(p.Sub(mgl32.Vec3{0, h, 0})),
		f.Sample(p.Add(mgl32.Vec3{0, 0, h})) - f.Sample(p.Sub(mgl32.Vec3{0, 0, h})),
	}
	return spatial.NormalizeVec3(g.Mul(-1))
}

func appendVertex(out []float32, p, n mgl32.Vec3) []float32 {
	return append(out, p[0], p[1], p[2], n[0], n[1], n[2])
}
