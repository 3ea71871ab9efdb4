package world

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/entities"
)

var (
	ErrGenerationFailed = errors.New("chunk generation failed")
	ErrCacheExhausted   = errors.New("chunk cache has no slots")
)

type State int

const (
	StateEmpty State = iota
	StateResident
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateResident:
		return "resident"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SlotHandle addresses one cache slot. Generation changes every time the slot
// is filled, so a handle kept past an eviction no longer resolves.
type SlotHandle struct {
	Index      uint32
	Generation uint32
}

// TerrainChunk is one cache slot. Values handed out by the cache are copies.
type TerrainChunk struct {
	Coord     ChunkCoord
	Origin    mgl32.Vec3
	Allocated bool
	State     State
	Entity    entities.Handle
	Slot      SlotHandle
	// Sequence orders allocations; lower is older.
	Sequence uint64
	// LastUsed is bumped on allocation and on every hit; lower is colder.
	LastUsed uint64
}

// Generator produces the renderable entity for a chunk.
type Generator interface {
	Generate(ctx context.Context, coord ChunkCoord, origin mgl32.Vec3) (entities.Handle, error)
}

// EntityReleaser returns an evicted chunk's entity to its pool.
type EntityReleaser interface {
	Release(h entities.Handle) error
}

// Focus tells the eviction policy where the camera is and which chunks the
// current frame wants resident.
type Focus struct {
	Position mgl32.Vec3
	Wanted   map[ChunkCoord]struct{}
}

type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Generations uint64 `json:"generations"`
	Failures    uint64 `json:"failures"`
	Evictions   uint64 `json:"evictions"`
	Loaded      int    `json:"loaded"`
	Capacity    int    `json:"capacity"`
}

type Option func(*ChunkCache)

func WithCapacity(n int) Option { return func(c *ChunkCache) { c.capacity = n } }

func WithPolicy(p EvictionPolicy) Option { return func(c *ChunkCache) { c.policy = p } }

func WithLogger(l *log.Logger) Option { return func(c *ChunkCache) { c.logger = l } }

// ChunkCache keeps at most Capacity chunks resident. All mutation happens
// under one lock, including generation, so requests are serialized.
type ChunkCache struct {
	generator Generator
	releaser  EntityReleaser
	policy    EvictionPolicy
	logger    *log.Logger
	capacity  int

	mu     sync.Mutex
	slots  []TerrainChunk
	loaded int
	seq    uint64
	uses   uint64
	focus  Focus
	stats  Stats
}

func NewChunkCache(gen Generator, releaser EntityReleaser, opts ...Option) *ChunkCache {
	c := &ChunkCache{
		generator: gen,
		releaser:  releaser,
		policy:    FarthestFirst{},
		capacity:  MaxLoadedChunks,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.capacity < 0 {
		c.capacity = 0
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.slots = make([]TerrainChunk, c.capacity)
	for i := range c.slots {
		c.slots[i].Slot.Index = uint32(i)
	}
	return c
}

func (c *ChunkCache) Capacity() int { return c.capacity }

// Count is the number of allocated slots.
func (c *ChunkCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *ChunkCache) SetFocus(f Focus) {
	c.mu.Lock()
	c.focus = f
	c.mu.Unlock()
}

// Request returns the resident chunk for coord, generating it on a miss. A
// hit never regenerates; it only refreshes LastUsed. On a miss with every
// slot in use one victim is evicted, and its entity released, before
// generation starts. A failed generation leaves the slot free and returns a
// chunk in StateFailed along with an error wrapping ErrGenerationFailed.
func (c *ChunkCache) Request(ctx context.Context, coord ChunkCoord) (TerrainChunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		if c.slots[i].Allocated && c.slots[i].Coord == coord {
			c.stats.Hits++
			c.uses++
			c.slots[i].LastUsed = c.uses
			return c.slots[i], nil
		}
	}
	c.stats.Misses++

	if c.capacity == 0 {
		return TerrainChunk{Coord: coord, Origin: OriginOf(coord), State: StateFailed},
			fmt.Errorf("chunk %v: %w", coord, ErrCacheExhausted)
	}

	idx := c.freeSlotLocked()
	if idx < 0 {
		idx = c.policy.Victim(c.slots, c.focus)
		if idx < 0 || idx >= len(c.slots) {
			idx = OldestFirst{}.Victim(c.slots, c.focus)
		}
		c.evictLocked(idx)
	}

	s := &c.slots[idx]
	s.Coord = coord
	s.Origin = OriginOf(coord)
	s.State = StateEmpty

	handle, err := c.generator.Generate(ctx, coord, s.Origin)
	if err != nil {
		c.stats.Failures++
		failed := *s
		failed.State = StateFailed
		c.clearLocked(idx)
		return failed, fmt.Errorf("chunk %v: %w: %w", coord, ErrGenerationFailed, err)
	}

	c.seq++
	c.uses++
	s.Allocated = true
	s.State = StateResident
	s.Entity = handle
	s.Slot.Generation++
	s.Sequence = c.seq
	s.LastUsed = c.uses
	c.loaded++
	c.stats.Generations++
	return *s, nil
}

func (c *ChunkCache) freeSlotLocked() int {
	for i := range c.slots {
		if !c.slots[i].Allocated {
			return i
		}
	}
	return -1
}

func (c *ChunkCache) clearLocked(idx int) {
	s := &c.slots[idx]
	*s = TerrainChunk{Slot: s.Slot}
}

func (c *ChunkCache) evictLocked(idx int) {
	s := &c.slots[idx]
	if !s.Allocated {
		return
	}
	if c.releaser != nil && !s.Entity.IsZero() {
		if err := c.releaser.Release(s.Entity); err != nil {
			c.logger.Printf("chunk %v: release %s: %v", s.Coord, s.Entity, err)
		}
	}
	c.clearLocked(idx)
	c.loaded--
	c.stats.Evictions++
}

// Evict drops coord if it is resident.
func (c *ChunkCache) Evict(coord ChunkCoord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].Allocated && c.slots[i].Coord == coord {
			c.evictLocked(i)
			return true
		}
	}
	return false
}

func (c *ChunkCache) Lookup(coord ChunkCoord) (TerrainChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].Allocated && c.slots[i].Coord == coord {
			return c.slots[i], true
		}
	}
	return TerrainChunk{}, false
}

// Get resolves a slot handle, failing once the slot has been refilled or
// freed.
func (c *ChunkCache) Get(h SlotHandle) (TerrainChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(h.Index) >= len(c.slots) {
		return TerrainChunk{}, false
	}
	s := c.slots[h.Index]
	if !s.Allocated || s.Slot.Generation != h.Generation {
		return TerrainChunk{}, false
	}
	return s, true
}

// Resident returns the allocated chunks in slot order.
func (c *ChunkCache) Resident() []TerrainChunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TerrainChunk, 0, c.loaded)
	for _, s := range c.slots {
		if s.Allocated {
			out = append(out, s)
		}
	}
	return out
}

func (c *ChunkCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stats
	st.Loaded = c.loaded
	st.Capacity = c.capacity
	return st
}

// Shutdown evicts every chunk and releases its entity.
func (c *ChunkCache) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		c.evictLocked(i)
	}
}
