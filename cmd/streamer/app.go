package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"terrainstream/internal/camera"
	"terrainstream/internal/config"
	"terrainstream/internal/entities"
	"terrainstream/internal/lightcull"
	"terrainstream/internal/observer"
	"terrainstream/internal/stream"
	"terrainstream/internal/terrain"
	"terrainstream/internal/trace"
	"terrainstream/internal/world"
)

// summaryEvery is how many frames pass between progress log lines.
const summaryEvery = 60

type app struct {
	cfg       *config.Config
	logger    *log.Logger
	backend   *backend
	entities  *entities.Pool
	generator *terrain.Generator
	cache     *world.ChunkCache
	streamer  *stream.Streamer
	hub       *observer.Hub
	server    *observer.Server
	trace     *trace.Writer
	camera    camera.Camera
}

func newApp(cfg *config.Config, be *backend, logger *log.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		backend:  be,
		entities: entities.NewPool(cfg.Entities.Capacity),
		camera:   camera.FromConfig(cfg.Camera),
	}

	for _, p := range []interface {
		Name() string
		Err() error
	}{be.terrain, be.lights} {
		if err := p.Err(); err != nil {
			logger.Printf("pipeline %s unavailable: %v", p.Name(), err)
		}
	}

	gen, err := terrain.NewGenerator(be.terrain, a.entities, terrain.GeneratorOptions{
		Workgroup:  cfg.Chunk.WorkgroupSize,
		VoxelScale: float32(cfg.Compute.VoxelScale),
		Logger:     prefixed(logger, "terrain "),
	})
	if err != nil {
		return nil, fmt.Errorf("terrain generator: %w", err)
	}
	a.generator = gen
	a.cache = world.NewChunkCache(gen, a.entities,
		world.WithCapacity(cfg.Chunk.MaxLoaded),
		world.WithLogger(prefixed(logger, "cache ")))

	opts := stream.OptionsFromConfig(cfg)
	opts.View = gen
	opts.Culler = lightcull.NewCuller(be.lights, cfg.Lights.TileSize)
	opts.Logger = prefixed(logger, "stream ")

	if cfg.Trace.Dir != "" {
		a.trace = trace.NewWriter(cfg.Trace.Dir, cfg.Trace.Prefix)
		opts.Sinks = append(opts.Sinks, a.trace)
	}
	if cfg.Observer.Listen != "" {
		a.hub = observer.NewHub(cfg.Observer.History)
		a.server = observer.NewServer(cfg.Observer.Listen, a.hub, a.cache, prefixed(logger, "observer "))
		opts.Sinks = append(opts.Sinks, a.hub)
	}

	a.streamer = stream.New(a.cache, a.entities, opts)
	return a, nil
}

func prefixed(parent *log.Logger, prefix string) *log.Logger {
	return log.New(parent.Writer(), prefix, parent.Flags())
}

// Run steps the streamer once per frame interval, flying the camera along
// its forward axis. frames <= 0 runs until ctx ends. The observer, when
// configured, lives exactly as long as Run.
func (a *app) Run(ctx context.Context, frames int) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var serverErr chan error
	if a.server != nil {
		serverErr = make(chan error, 1)
		go func() {
			serverErr <- a.server.Run(runCtx)
			close(serverErr)
		}()
	}

	err := a.loop(runCtx, frames, serverErr)
	cancel()
	if serverErr != nil {
		if serr := <-serverErr; serr != nil && err == nil {
			err = fmt.Errorf("observer: %w", serr)
		}
	}
	return err
}

func (a *app) loop(ctx context.Context, frames int, serverErr <-chan error) error {
	ticker := time.NewTicker(a.cfg.Stream.FrameRate.Duration())
	defer ticker.Stop()

	last := time.Now()
	for n := 0; frames <= 0 || n < frames; n++ {
		rep, err := a.streamer.Frame(ctx, a.camera)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if rep.Frame%summaryEvery == 1 {
			a.logger.Printf("frame %d: center %s resident %d visible %d loads %d failures %d (%dus)",
				rep.Frame, rep.Center, rep.Resident, rep.Visible, rep.Loads, rep.Failures, rep.Micros)
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("observer: %w", err)
			}
			return nil
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			a.camera.Move(a.cfg.Camera.Speed*dt, 0, 0)
		}
	}
	return nil
}

func (a *app) Close() {
	a.streamer.Shutdown()
	if a.trace != nil {
		if err := a.trace.Close(); err != nil {
			a.logger.Printf("close trace: %v", err)
		}
	}
	a.backend.Close()
}
