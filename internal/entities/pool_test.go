package entities

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAcquireAndGet(t *testing.T) {
	p := NewPool(4)
	h, err := p.Acquire(Entity{Label: "chunk", Origin: mgl32.Vec3{64, 0, 0}})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if h.IsZero() {
		t.Fatalf("acquired handle must not be zero")
	}
	e, ok := p.Get(h)
	if !ok || e.Label != "chunk" || e.Origin != (mgl32.Vec3{64, 0, 0}) {
		t.Fatalf("get: %+v %v", e, ok)
	}
	if p.Live() != 1 {
		t.Fatalf("live = %d", p.Live())
	}
}

func TestReleaseInvalidatesHandle(t *testing.T) {
	p := NewPool(1)
	h, _ := p.Acquire(Entity{Label: "a"})
	if err := p.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := p.Get(h); ok {
		t.Fatalf("released handle still resolves")
	}
	if err := p.Release(h); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("double release: got %v", err)
	}

	h2, err := p.Acquire(Entity{Label: "b"})
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if h2.Index != h.Index || h2.Generation == h.Generation {
		t.Fatalf("slot reuse should bump generation: %v then %v", h, h2)
	}
	if _, ok := p.Get(h); ok {
		t.Fatalf("old handle resolves to new occupant")
	}
}

func TestPoolExhaustion(t *testing.T) {
	p := NewPool(2)
	for i := 0; i < 2; i++ {
		if _, err := p.Acquire(Entity{}); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if _, err := p.Acquire(Entity{}); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
}

func TestZeroHandleNeverResolves(t *testing.T) {
	p := NewPool(2)
	if _, err := p.Acquire(Entity{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, ok := p.Get(Handle{}); ok {
		t.Fatalf("zero handle resolved")
	}
	if err := p.Release(Handle{Index: 99, Generation: 1}); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("out of range handle: %v", err)
	}
}

func TestEachVisitsLiveEntities(t *testing.T) {
	p := NewPool(3)
	a, _ := p.Acquire(Entity{Label: "a"})
	b, _ := p.Acquire(Entity{Label: "b"})
	_, _ = p.Acquire(Entity{Label: "c"})
	_ = p.Release(b)

	var labels []string
	p.Each(func(h Handle, e Entity) bool {
		labels = append(labels, e.Label)
		return true
	})
	if len(labels) != 2 {
		t.Fatalf("visited %v", labels)
	}
	if labels[0] != "a" || a.Index != 0 {
		t.Fatalf("slot order not preserved: %v", labels)
	}
}

func TestDefaultCapacity(t *testing.T) {
	if got := NewPool(0).Capacity(); got != DefaultCapacity {
		t.Fatalf("capacity %d", got)
	}
}
