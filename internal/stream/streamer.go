// Package stream drives chunk residency frame by frame: it culls the
// neighbourhood of the camera against the view frustum, requests the chunks
// that survive from the cache within a dispatch budget, and reports what it
// did to any number of sinks.
package stream

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/time/rate"

	"terrainstream/internal/camera"
	"terrainstream/internal/compute"
	"terrainstream/internal/config"
	"terrainstream/internal/daylight"
	"terrainstream/internal/entities"
	"terrainstream/internal/frustum"
	"terrainstream/internal/lightcull"
	"terrainstream/internal/mesh"
	"terrainstream/internal/terrain"
	"terrainstream/internal/world"
)

const defaultMaxAttempts = 5

// Report summarises one frame.
type Report struct {
	Frame      uint64           `json:"frame"`
	Time       time.Time        `json:"time"`
	Camera     [3]float32       `json:"camera"`
	Center     world.ChunkCoord `json:"center"`
	TimeOfDay  float64          `json:"timeOfDay,omitempty"`
	Phase      string           `json:"phase,omitempty"`
	Targets    int              `json:"targets"`
	Hits       int              `json:"hits"`
	Loads      int              `json:"loads"`
	Failures   int              `json:"failures"`
	Deferred   int              `json:"deferred"`
	Retried    int              `json:"retried"`
	Abandoned  int              `json:"abandoned"`
	Exhausted  int              `json:"exhausted"`
	Evictions  int              `json:"evictions"`
	Resident   int              `json:"resident"`
	Visible    int              `json:"visible"`
	LitTiles   int              `json:"litTiles"`
	LightLinks int              `json:"lightLinks"`
	Micros     int64            `json:"micros"`
	Errors     []string         `json:"errors,omitempty"`
}

// RenderItem is one resident chunk inside the frustum.
type RenderItem struct {
	Coord  world.ChunkCoord
	Entity entities.Handle
	Model  mgl32.Mat4
	Mesh   *mesh.ArrayMesh
}

// Sink consumes frame reports.
type Sink interface {
	Record(r Report) error
}

// EntitySource resolves chunk entities.
type EntitySource interface {
	Get(h entities.Handle) (entities.Entity, bool)
}

// ViewBinder receives the camera before any generation of the frame runs.
type ViewBinder interface {
	SetCamera(c terrain.CameraState)
}

type Options struct {
	Radius             int
	VerticalRadius     int
	RetryDelay         time.Duration
	MaxRetriesPerFrame int
	MaxAttempts        int
	// Limiter bounds generation dispatches. Nil allows every miss.
	Limiter *rate.Limiter
	View    ViewBinder
	// Sky moves the sun bound with each frame's camera. Nil leaves the
	// generator's own light direction in place.
	Sky    *daylight.Cycle
	Culler *lightcull.Culler
	Lights []compute.PointLight
	Screen [2]int
	Sinks  []Sink
	Logger *log.Logger
	Now    func() time.Time
}

// OptionsFromConfig fills the streaming and lighting fields of Options.
func OptionsFromConfig(cfg *config.Config) Options {
	st := cfg.Stream
	opts := Options{
		Radius:             st.Radius,
		VerticalRadius:     st.VerticalRadius,
		RetryDelay:         st.RetryDelay.Duration(),
		MaxRetriesPerFrame: st.MaxRetriesPerFrame,
		Limiter:            rate.NewLimiter(rate.Limit(st.MaxDispatchesPerSecond), st.DispatchBurst),
		Screen:             cfg.Lights.Screen,
	}
	if cfg.Sky.DayLength > 0 {
		opts.Sky = daylight.NewCycle(cfg.Sky.DayLength.Duration(), cfg.Sky.StartHour, time.Now())
	}
	for _, l := range cfg.Lights.Points {
		opts.Lights = append(opts.Lights, compute.PointLight{
			Color:            mgl32.Vec4{l.Color[0], l.Color[1], l.Color[2], 1},
			Position:         mgl32.Vec4{l.Position[0], l.Position[1], l.Position[2], 1},
			PaddingAndRadius: mgl32.Vec4{0, 0, 0, l.Radius},
		})
	}
	return opts
}

// Streamer owns all per-frame streaming state. Frame is not safe for
// concurrent use; RenderSet and Frustum may be read from other goroutines.
type Streamer struct {
	cache    *world.ChunkCache
	entities EntitySource
	retries  *RetryQueue
	limiter  *rate.Limiter
	opts     Options
	logger   *log.Logger
	now      func() time.Time

	frame     uint64
	evictions uint64
	// exhausted holds wanted chunks that failed MaxAttempts times. They are
	// not requested again until they leave the target set.
	exhausted map[world.ChunkCoord]struct{}
	attempted map[world.ChunkCoord]struct{}

	mu      sync.RWMutex
	frustum frustum.Frustum
	render  []RenderItem
	last    Report
}

func New(cache *world.ChunkCache, ents EntitySource, opts Options) *Streamer {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Radius < 0 {
		opts.Radius = 0
	}
	if opts.VerticalRadius < 0 {
		opts.VerticalRadius = 0
	}
	return &Streamer{
		cache:     cache,
		entities:  ents,
		retries:   NewRetryQueue(),
		limiter:   opts.Limiter,
		opts:      opts,
		logger:    opts.Logger,
		now:       opts.Now,
		evictions: cache.Stats().Evictions,
		exhausted: make(map[world.ChunkCoord]struct{}),
		attempted: make(map[world.ChunkCoord]struct{}),
	}
}

func (s *Streamer) Cache() *world.ChunkCache { return s.cache }
func (s *Streamer) Retries() *RetryQueue     { return s.retries }

// Targets returns the chunks around pos that intersect f, nearest first,
// truncated to the cache capacity.
func (s *Streamer) Targets(pos mgl32.Vec3, f frustum.Frustum) []world.ChunkCoord {
	center := world.ChunkAt(pos)
	var out []world.ChunkCoord
	for _, c := range world.Neighborhood(center, s.opts.Radius, s.opts.VerticalRadius) {
		if f.IntersectsAABB(world.ChunkBounds(c)) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di := world.Center(out[i]).Sub(pos).LenSqr()
		dj := world.Center(out[j]).Sub(pos).LenSqr()
		return di < dj
	})
	if limit := s.cache.Capacity(); len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Frame runs one streaming step for cam. Generation failures are reported,
// not returned; the error is non-nil only when ctx ends.
func (s *Streamer) Frame(ctx context.Context, cam camera.Camera) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	start := s.now()
	s.frame++
	rep := Report{
		Frame:  s.frame,
		Time:   start,
		Camera: [3]float32(cam.Position),
		Center: world.ChunkAt(cam.Position),
	}

	view, proj := cam.View(), cam.Projection()
	viewProj := cam.ViewProjection()
	f := frustum.Extract(viewProj)
	state := terrain.CameraState{View: view, Projection: proj, Position: cam.Position}
	if s.opts.Sky != nil {
		sun := s.opts.Sky.State(start)
		rep.TimeOfDay = sun.TimeOfDay
		rep.Phase = sun.Phase
		state.LightDir = sun.SunDirection
	}
	if s.opts.View != nil {
		s.opts.View.SetCamera(state)
	}

	targets := s.Targets(cam.Position, f)
	rep.Targets = len(targets)
	wanted := make(map[world.ChunkCoord]struct{}, len(targets))
	for _, c := range targets {
		wanted[c] = struct{}{}
	}
	s.cache.SetFocus(world.Focus{Position: cam.Position, Wanted: wanted})
	for c := range s.exhausted {
		if _, ok := wanted[c]; !ok {
			delete(s.exhausted, c)
		}
	}
	clear(s.attempted)

	err := s.drainRetries(ctx, start, wanted, &rep)
	if err == nil {
		err = s.requestTargets(ctx, start, targets, &rep)
	}

	stats := s.cache.Stats()
	rep.Evictions = int(stats.Evictions - s.evictions)
	s.evictions = stats.Evictions
	rep.Resident = stats.Loaded

	render := s.collect(f)
	rep.Visible = len(render)
	s.mu.Lock()
	s.frustum = f
	s.render = render
	s.mu.Unlock()

	if err == nil {
		s.cullLights(ctx, viewProj, proj, view, render, &rep)
	}

	rep.Micros = s.now().Sub(start).Microseconds()
	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()
	s.publish(rep)
	return rep, err
}

func (s *Streamer) drainRetries(ctx context.Context, now time.Time, wanted map[world.ChunkCoord]struct{}, rep *Report) error {
	for _, r := range s.retries.Drain(now, s.opts.MaxRetriesPerFrame) {
		if _, ok := wanted[r.Coord]; !ok {
			rep.Abandoned++
			continue
		}
		if _, ok := s.cache.Lookup(r.Coord); ok {
			continue
		}
		if !s.limiter.AllowN(now, 1) {
			rep.Deferred++
			s.retries.Enqueue(r)
			continue
		}
		rep.Retried++
		if err := s.load(ctx, now, r.Coord, r.Attempts, rep); err != nil {
			return err
		}
	}
	return nil
}

func (s *Streamer) requestTargets(ctx context.Context, now time.Time, targets []world.ChunkCoord, rep *Report) error {
	for _, c := range targets {
		if _, ok := s.attempted[c]; ok {
			continue
		}
		if _, ok := s.cache.Lookup(c); ok {
			rep.Hits++
			continue
		}
		if _, ok := s.exhausted[c]; ok {
			rep.Exhausted++
			continue
		}
		if s.retries.Contains(c) {
			rep.Deferred++
			continue
		}
		if !s.limiter.AllowN(now, 1) {
			rep.Deferred++
			continue
		}
		if err := s.load(ctx, now, c, 0, rep); err != nil {
			return err
		}
	}
	return nil
}

// load requests one chunk. A failure is queued for retry unless the chunk
// has used up its attempts.
func (s *Streamer) load(ctx context.Context, now time.Time, c world.ChunkCoord, attempts int, rep *Report) error {
	s.attempted[c] = struct{}{}
	_, err := s.cache.Request(ctx, c)
	if err == nil {
		rep.Loads++
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return ctxErr
	}
	rep.Failures++
	rep.Errors = append(rep.Errors, err.Error())
	attempts++
	if attempts >= s.opts.MaxAttempts {
		s.exhausted[c] = struct{}{}
		s.logger.Printf("chunk %s: giving up after %d attempts: %v", c, attempts, err)
		return nil
	}
	s.logger.Printf("chunk %s: attempt %d failed: %v", c, attempts, err)
	s.retries.Enqueue(Retry{
		Coord:     c,
		Attempts:  attempts,
		NotBefore: now.Add(s.opts.RetryDelay),
		Reason:    err.Error(),
	})
	return nil
}

func (s *Streamer) collect(f frustum.Frustum) []RenderItem {
	resident := s.cache.Resident()
	out := make([]RenderItem, 0, len(resident))
	for _, chunk := range resident {
		if !f.IntersectsAABB(world.ChunkBounds(chunk.Coord)) {
			continue
		}
		item := RenderItem{Coord: chunk.Coord, Entity: chunk.Entity}
		if s.entities != nil {
			if e, ok := s.entities.Get(chunk.Entity); ok {
				item.Model = e.Model
				item.Mesh = e.Mesh
			}
		}
		out = append(out, item)
	}
	return out
}

func (s *Streamer) cullLights(ctx context.Context, viewProj, proj, view mgl32.Mat4, render []RenderItem, rep *Report) {
	c := s.opts.Culler
	if c == nil || !c.Available() || len(s.opts.Lights) == 0 {
		return
	}
	w, h := s.opts.Screen[0], s.opts.Screen[1]
	if w <= 0 || h <= 0 {
		return
	}
	tiles, err := c.Cull(ctx, SplatDepth(w, h, viewProj, render), s.opts.Lights, proj, view)
	if err != nil {
		rep.Errors = append(rep.Errors, err.Error())
		return
	}
	for _, list := range tiles.Lights {
		if len(list) > 0 {
			rep.LitTiles++
		}
		rep.LightLinks += len(list)
	}
}

func (s *Streamer) publish(rep Report) {
	for _, sink := range s.opts.Sinks {
		if err := sink.Record(rep); err != nil {
			s.logger.Printf("frame %d: sink: %v", rep.Frame, err)
		}
	}
}

// RenderSet is the resident, frustum-visible chunk list of the last frame.
func (s *Streamer) RenderSet() []RenderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RenderItem(nil), s.render...)
}

func (s *Streamer) Frustum() frustum.Frustum {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frustum
}

func (s *Streamer) LastReport() Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Shutdown evicts every chunk and releases its entity.
func (s *Streamer) Shutdown() {
	s.cache.Shutdown()
	s.mu.Lock()
	s.render = nil
	s.mu.Unlock()
}
