//go:build gl

package main

import (
	"fmt"
	"log"
	"runtime"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"terrainstream/internal/compute"
	"terrainstream/internal/compute/glcompute"
	"terrainstream/internal/config"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

// newGLBackend opens a hidden 4.3 core context and builds both programs on
// it. Every dispatch must come from the goroutine that called this.
func newGLBackend(cfg *config.Config, logger *log.Logger) (*backend, error) {
	if cfg.Lights.TileSize != glcompute.TileSize {
		return nil, fmt.Errorf("gl light culling needs lights.tileSize %d, got %d", glcompute.TileSize, cfg.Lights.TileSize)
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	win, err := glfw.CreateWindow(1, 1, "terrainstream", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create gl context: %w", err)
	}
	win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("init gl: %w", err)
	}
	logger.Printf("gl compute backend: %s", gl.GoStr(gl.GetString(gl.VERSION)))

	dev := glcompute.NewDevice()
	src := shaderSource(cfg)
	opts := pipelineOptions(cfg, logger)

	terrainK := glcompute.NewTerrainKernel(cfg.Terrain, 0)
	lightK := glcompute.NewLightCullKernel()
	terrainP := compute.NewPipeline[compute.TerrainGenInputs, compute.Capture](
		compute.TerrainGenProgram(), dev, src, terrainK, opts)
	lightP := compute.NewPipeline[compute.LightCullInputs, compute.TileLights](
		compute.LightCullProgram(), dev, src, lightK, opts)

	return &backend{
		name:    "gl",
		terrain: terrainP,
		lights:  lightP,
		close: func() {
			terrainP.Close()
			lightP.Close()
			terrainK.Close()
			lightK.Close()
			win.Destroy()
			glfw.Terminate()
		},
	}, nil
}
