package main

import (
	"log"
	"runtime"

	"github.com/alitto/pond/v2"

	"terrainstream/internal/compute"
	"terrainstream/internal/compute/cpu"
	"terrainstream/internal/config"
	"terrainstream/internal/lightcull"
	"terrainstream/internal/shaders"
	"terrainstream/internal/terrain"
)

// backend is the pair of compute pipelines the streamer drives, already
// built against one device.
type backend struct {
	name    string
	terrain *terrain.Pipeline
	lights  *lightcull.Pipeline
	close   func()
}

func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

func newBackend(cfg *config.Config, logger *log.Logger) (*backend, error) {
	if cfg.Compute.Backend == "gl" {
		return newGLBackend(cfg, logger)
	}
	return newCPUBackend(cfg, logger), nil
}

func shaderSource(cfg *config.Config) compute.SourceReader {
	if cfg.Compute.ShaderDir != "" {
		return shaders.Dir(cfg.Compute.ShaderDir)
	}
	return shaders.Embedded()
}

func pipelineOptions(cfg *config.Config, logger *log.Logger) compute.Options {
	return compute.Options{
		Timeout: cfg.Compute.DispatchTimeout.Duration(),
		Logger:  logger,
	}
}

// newCPUBackend runs both kernels on a shared worker pool, one task per
// workgroup.
func newCPUBackend(cfg *config.Config, logger *log.Logger) *backend {
	workers := cfg.Compute.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool := pond.NewPool(workers)

	dev := cpu.NewDevice()
	src := shaderSource(cfg)
	opts := pipelineOptions(cfg, logger)

	terrainP := compute.NewPipeline[compute.TerrainGenInputs, compute.Capture](
		compute.TerrainGenProgram(), dev, src,
		cpu.NewTerrainKernel(pool, terrain.NewNoiseDensity(cfg.Terrain)), opts)
	lightP := compute.NewPipeline[compute.LightCullInputs, compute.TileLights](
		compute.LightCullProgram(), dev, src, cpu.NewLightCullKernel(pool), opts)

	logger.Printf("cpu compute backend with %d workers", workers)
	return &backend{
		name:    "cpu",
		terrain: terrainP,
		lights:  lightP,
		close: func() {
			terrainP.Close()
			lightP.Close()
			pool.StopAndWait()
		},
	}
}
