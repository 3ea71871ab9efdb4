// Package observer exposes frame reports and the resident chunk set over
// HTTP and a websocket stream.
package observer

import (
	"encoding/json"
	"sync"

	"terrainstream/internal/stream"
)

const defaultHistory = 120

// Hub keeps the latest reports and fans each new one out to subscribers.
// A subscriber that falls behind misses reports; Record never blocks.
type Hub struct {
	mu      sync.Mutex
	history []stream.Report
	limit   int
	subs    map[uint64]chan []byte
	nextID  uint64
	dropped uint64
}

func NewHub(history int) *Hub {
	if history <= 0 {
		history = defaultHistory
	}
	return &Hub{limit: history, subs: make(map[uint64]chan []byte)}
}

func (h *Hub) Record(r stream.Report) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, r)
	if over := len(h.history) - h.limit; over > 0 {
		h.history = append(h.history[:0], h.history[over:]...)
	}
	for _, ch := range h.subs {
		select {
		case ch <- b:
		default:
			h.dropped++
		}
	}
	return nil
}

// History returns the kept reports, oldest first.
func (h *Hub) History() []stream.Report {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]stream.Report(nil), h.history...)
}

// Subscribe returns a channel of JSON-encoded reports and a cancel func that
// closes it.
func (h *Hub) Subscribe(buffer int) (<-chan []byte, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan []byte, buffer)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped counts reports not delivered to a slow subscriber.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
