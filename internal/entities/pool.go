// Package entities is the fixed-capacity arena of renderable entities. Each
// resident chunk owns exactly one entity through a generation-checked handle.
package entities

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"terrainstream/internal/mesh"
)

// DefaultCapacity is the table size used for a non-positive capacity.
const DefaultCapacity = 5000

var (
	ErrPoolExhausted = errors.New("entity pool exhausted")
	ErrStaleHandle   = errors.New("stale entity handle")
)

// Handle addresses a pool slot. The zero Handle is never valid.
type Handle struct {
	Index      uint32
	Generation uint32
}

func (h Handle) IsZero() bool { return h == Handle{} }

func (h Handle) String() string { return fmt.Sprintf("entity(%d#%d)", h.Index, h.Generation) }

type Entity struct {
	Label  string
	Mesh   *mesh.ArrayMesh
	Model  mgl32.Mat4
	Origin mgl32.Vec3
}

type slot struct {
	generation uint32
	live       bool
	entity     Entity
}

type Pool struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	live  int
}

func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &Pool{
		slots: make([]slot, capacity),
		free:  make([]uint32, 0, capacity),
	}
	for i := capacity - 1; i >= 0; i-- {
		p.free = append(p.free, uint32(i))
	}
	return p
}

// Acquire stores e in a free slot.
func (p *Pool) Acquire(e Entity) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return Handle{}, fmt.Errorf("acquire %q: %w (capacity %d)", e.Label, ErrPoolExhausted, len(p.slots))
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	s := &p.slots[idx]
	s.generation++
	s.live = true
	s.entity = e
	p.live++
	return Handle{Index: idx, Generation: s.generation}, nil
}

func (p *Pool) lookup(h Handle) (*slot, bool) {
	if int(h.Index) >= len(p.slots) || h.Generation == 0 {
		return nil, false
	}
	s := &p.slots[h.Index]
	if !s.live || s.generation != h.Generation {
		return nil, false
	}
	return s, true
}

// Release frees the slot behind h. Releasing twice fails with ErrStaleHandle.
func (p *Pool) Release(h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.lookup(h)
	if !ok {
		return fmt.Errorf("release %s: %w", h, ErrStaleHandle)
	}
	s.live = false
	s.entity = Entity{}
	p.free = append(p.free, h.Index)
	p.live--
	return nil
}

func (p *Pool) Get(h Handle) (Entity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.lookup(h)
	if !ok {
		return Entity{}, false
	}
	return s.entity, true
}

func (p *Pool) Live() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.live
}

func (p *Pool) Capacity() int { return len(p.slots) }

// Each visits live entities in slot order until fn returns false.
func (p *Pool) Each(fn func(Handle, Entity) bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := range p.slots {
		s := &p.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: s.generation}, s.entity) {
			return
		}
	}
}
