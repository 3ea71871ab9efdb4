//go:build gl

package glcompute

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"

	"terrainstream/internal/compute"
	"terrainstream/internal/config"
)

const (
	captureBinding = 0
	counterBinding = 1

	// DefaultMaxVertices bounds the capture buffer of one chunk.
	DefaultMaxVertices = 1 << 19
)

// TerrainKernel runs terrain_gen.comp. The density parameters are bound as
// extra uniforms so the shader evaluates the same field as the CPU backend.
type TerrainKernel struct {
	terrain     config.TerrainConfig
	maxVertices int
	textures    map[*compute.Texture]uint32
}

func NewTerrainKernel(terrain config.TerrainConfig, maxVertices int) *TerrainKernel {
	if maxVertices <= 0 {
		maxVertices = DefaultMaxVertices
	}
	maxVertices -= maxVertices % 3
	return &TerrainKernel{terrain: terrain, maxVertices: maxVertices, textures: make(map[*compute.Texture]uint32)}
}

func (k *TerrainKernel) Dispatch(ctx context.Context, prog *compute.Program, groups compute.Groups, in compute.TerrainGenInputs) (compute.Fence[compute.Capture], error) {
	if prog.Spec.Kind != compute.KindTerrainGen {
		return nil, fmt.Errorf("program %s is %s, not terrain generation", prog.Spec.Name, prog.Spec.Kind)
	}
	if err := in.Validate(groups); err != nil {
		return nil, err
	}
	layout, ok := prog.Layout.(*compute.TerrainGenUniforms)
	if !ok {
		return nil, fmt.Errorf("program %s has no terrain generation layout", prog.Spec.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := uint32(prog.Handle)
	gl.UseProgram(p)

	gl.Uniform3fv(int32(layout.LightDir), 1, &in.LightDir[0])
	gl.UniformMatrix4fv(int32(layout.TransformMatrix), 1, false, &in.Transform[0])
	gl.UniformMatrix4fv(int32(layout.PerspectiveMatrix), 1, false, &in.Perspective[0])
	gl.UniformMatrix4fv(int32(layout.ViewMatrix), 1, false, &in.View[0])
	gl.Uniform3fv(int32(layout.CameraPosition), 1, &in.CameraPosition[0])
	gl.Uniform3fv(int32(layout.WorldOffset), 1, &in.WorldOffset[0])
	gl.Uniform1f(int32(layout.VoxelScale), in.VoxelScale)

	k.bindTexture(0, in.EdgeTable, layout.EdgeTable)
	k.bindTexture(1, in.TriTable, layout.TriTable)
	k.bindNoise(p, in.ChunkSize/int(groups[0]))

	stride := compute.CaptureStride * 4
	var buffers [2]uint32
	gl.GenBuffers(2, &buffers[0])
	capture, counter := buffers[0], buffers[1]

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, capture)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, k.maxVertices*stride, nil, gl.DYNAMIC_READ)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, captureBinding, capture)

	header := [2]uint32{0, uint32(k.maxVertices)}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, counter)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, int(unsafe.Sizeof(header)), gl.Ptr(&header[0]), gl.DYNAMIC_READ)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, counterBinding, counter)

	gl.DispatchCompute(groups[0], groups[1], groups[2])
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)

	readback := func() (compute.Capture, error) {
		var got [2]uint32
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, counter)
		gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, int(unsafe.Sizeof(got)), gl.Ptr(&got[0]))
		n := min(int(got[0]), k.maxVertices)
		out := compute.Capture{Vertices: n, Interleaved: make([]float32, n*compute.CaptureStride)}
		if n > 0 {
			gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, capture)
			gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, n*stride, gl.Ptr(&out.Interleaved[0]))
		}
		if e := gl.GetError(); e != gl.NO_ERROR {
			return compute.Capture{}, fmt.Errorf("terrain readback: gl error 0x%x", e)
		}
		if int(got[0]) > k.maxVertices {
			return out, fmt.Errorf("chunk %v overflowed the capture buffer: %d of %d vertices", in.Coord, got[0], k.maxVertices)
		}
		return out, nil
	}
	release := func() { gl.DeleteBuffers(2, &buffers[0]) }
	return newSyncFence(readback, release), nil
}

// bindTexture uploads t once and binds it to unit.
func (k *TerrainKernel) bindTexture(unit uint32, t *compute.Texture, loc compute.Location) {
	tex, ok := k.textures[t]
	if !ok {
		gl.GenTextures(1, &tex)
		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R32I, int32(t.Width), int32(t.Height), 0, gl.RED_INTEGER, gl.INT, gl.Ptr(&t.Data[0]))
		k.textures[t] = tex
	}
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(int32(loc), int32(unit))
}

func (k *TerrainKernel) bindNoise(p uint32, cellsPerGroup int) {
	c := k.terrain
	set1i := func(name string, v int32) { gl.Uniform1i(gl.GetUniformLocation(p, gl.Str(name+"\x00")), v) }
	set1f := func(name string, v float64) { gl.Uniform1f(gl.GetUniformLocation(p, gl.Str(name+"\x00")), float32(v)) }
	set1i("cellsPerGroup", int32(cellsPerGroup))
	set1i("seed", int32(c.Seed))
	set1f("frequency", c.Frequency)
	set1f("amplitude", c.Amplitude)
	set1i("octaves", int32(c.Octaves))
	set1f("persistence", c.Persistence)
	set1f("lacunarity", c.Lacunarity)
	set1f("baseHeight", c.BaseHeight)
	set1f("caveFrequency", c.CaveFrequency)
	set1f("caveThreshold", c.CaveThreshold)
}

// Close deletes the uploaded lookup textures.
func (k *TerrainKernel) Close() {
	for t, tex := range k.textures {
		gl.DeleteTextures(1, &tex)
		delete(k.textures, t)
	}
}
