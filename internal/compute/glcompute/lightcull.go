//go:build gl

package glcompute

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"

	"terrainstream/internal/compute"
)

const (
	lightBinding   = 0
	visibleBinding = 1

	// MaxLightsPerTile bounds each tile's index list.
	MaxLightsPerTile = 64
	TileSize         = 16
)

// LightCullKernel runs light_cull.comp, one workgroup per 16x16 tile.
type LightCullKernel struct {
	depthTex uint32
}

func NewLightCullKernel() *LightCullKernel { return &LightCullKernel{} }

func (k *LightCullKernel) Dispatch(ctx context.Context, prog *compute.Program, groups compute.Groups, in compute.LightCullInputs) (compute.Fence[compute.TileLights], error) {
	if prog.Spec.Kind != compute.KindLightCull {
		return nil, fmt.Errorf("program %s is %s, not light culling", prog.Spec.Name, prog.Spec.Kind)
	}
	if in.TileSize != TileSize {
		return nil, fmt.Errorf("gl light culling needs %dpx tiles, got %d", TileSize, in.TileSize)
	}
	layout, ok := prog.Layout.(*compute.LightCullUniforms)
	if !ok {
		return nil, fmt.Errorf("program %s has no light cull layout", prog.Spec.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tilesX, tilesY := int(groups[0]), int(groups[1])

	p := uint32(prog.Handle)
	gl.UseProgram(p)

	if k.depthTex == 0 {
		gl.GenTextures(1, &k.depthTex)
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, k.depthTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R32F, int32(in.Depth.Width), int32(in.Depth.Height), 0, gl.RED, gl.FLOAT, gl.Ptr(&in.Depth.Depth[0]))

	gl.Uniform1i(int32(layout.DepthMap), 0)
	gl.Uniform1i(int32(layout.LightCount), int32(len(in.Lights)))
	gl.UniformMatrix4fv(int32(layout.Projection), 1, false, &in.Projection[0])
	gl.UniformMatrix4fv(int32(layout.View), 1, false, &in.View[0])
	gl.Uniform2i(int32(layout.ScreenSize), int32(in.Depth.Width), int32(in.Depth.Height))
	gl.Uniform1i(gl.GetUniformLocation(p, gl.Str("maxLightsPerTile\x00")), MaxLightsPerTile)

	var buffers [2]uint32
	gl.GenBuffers(2, &buffers[0])
	lightBuf, visibleBuf := buffers[0], buffers[1]

	lightBytes := len(in.Lights) * int(unsafe.Sizeof(compute.PointLight{}))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, lightBuf)
	if lightBytes > 0 {
		gl.BufferData(gl.SHADER_STORAGE_BUFFER, lightBytes, gl.Ptr(&in.Lights[0]), gl.STATIC_DRAW)
	} else {
		gl.BufferData(gl.SHADER_STORAGE_BUFFER, 16, nil, gl.STATIC_DRAW)
	}
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, lightBinding, lightBuf)

	perTile := MaxLightsPerTile + 1
	visibleLen := tilesX * tilesY * perTile
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, visibleBuf)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, visibleLen*4, nil, gl.DYNAMIC_READ)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, visibleBinding, visibleBuf)

	gl.DispatchCompute(groups[0], groups[1], 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)

	readback := func() (compute.TileLights, error) {
		raw := make([]uint32, visibleLen)
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, visibleBuf)
		gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, visibleLen*4, gl.Ptr(&raw[0]))
		if e := gl.GetError(); e != gl.NO_ERROR {
			return compute.TileLights{}, fmt.Errorf("light cull readback: gl error 0x%x", e)
		}
		out := compute.TileLights{TilesX: tilesX, TilesY: tilesY, Lights: make([][]uint32, tilesX*tilesY)}
		for t := range out.Lights {
			base := t * perTile
			n := int(raw[base])
			if n > 0 {
				out.Lights[t] = append([]uint32(nil), raw[base+1:base+1+n]...)
			}
		}
		return out, nil
	}
	release := func() { gl.DeleteBuffers(2, &buffers[0]) }
	return newSyncFence(readback, release), nil
}

func (k *LightCullKernel) Close() {
	if k.depthTex != 0 {
		gl.DeleteTextures(1, &k.depthTex)
		k.depthTex = 0
	}
}
