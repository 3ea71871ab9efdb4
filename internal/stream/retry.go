package stream

import (
	"sync"
	"time"

	"terrainstream/internal/world"
)

// Retry is a chunk whose generation failed and is waiting to be requested
// again.
type Retry struct {
	Coord     world.ChunkCoord
	Attempts  int
	NotBefore time.Time
	Reason    string
}

// RetryQueue holds at most one pending retry per chunk, in arrival order.
type RetryQueue struct {
	mu      sync.Mutex
	pending []Retry
}

func NewRetryQueue() *RetryQueue {
	return &RetryQueue{
		pending: make([]Retry, 0),
	}
}

// Enqueue adds r, replacing any retry already queued for the same chunk.
func (q *RetryQueue) Enqueue(r Retry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.pending {
		if q.pending[i].Coord == r.Coord {
			q.pending[i] = r
			return
		}
	}
	q.pending = append(q.pending, r)
}

// Drain removes and returns up to max retries that are due at now. Retries
// not yet due keep their place. max <= 0 drains every due retry.
func (q *RetryQueue) Drain(now time.Time, max int) []Retry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	var batch []Retry
	kept := q.pending[:0]
	for _, r := range q.pending {
		if (max <= 0 || len(batch) < max) && !now.Before(r.NotBefore) {
			batch = append(batch, r)
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(q.pending); i++ {
		q.pending[i] = Retry{}
	}
	q.pending = kept
	return batch
}

func (q *RetryQueue) Contains(coord world.ChunkCoord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.pending {
		if r.Coord == coord {
			return true
		}
	}
	return false
}

func (q *RetryQueue) Remove(coord world.ChunkCoord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, r := range q.pending {
		if r.Coord == coord {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
