package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"terrainstream/internal/entities"
	"terrainstream/internal/stream"
	"terrainstream/internal/world"
)

type fakeChunks struct{ chunks []world.TerrainChunk }

func (f fakeChunks) Resident() []world.TerrainChunk { return f.chunks }
func (f fakeChunks) Stats() world.Stats {
	return world.Stats{Loaded: len(f.chunks), Capacity: world.MaxLoadedChunks}
}

func newTestServer(hub *Hub) *Server {
	chunks := fakeChunks{chunks: []world.TerrainChunk{{
		Coord:     world.ChunkCoord{X: 1, Y: 0, Z: -2},
		Origin:    mgl32.Vec3{64, 0, -128},
		Allocated: true,
		State:     world.StateResident,
		Entity:    entities.Handle{Index: 3, Generation: 1},
		Slot:      world.SlotHandle{Index: 0, Generation: 1},
		Sequence:  7,
	}}}
	return NewServer("127.0.0.1:0", hub, chunks, log.New(&bytes.Buffer{}, "", 0))
}

func TestHubKeepsBoundedHistory(t *testing.T) {
	hub := NewHub(3)
	for i := 1; i <= 5; i++ {
		if err := hub.Record(stream.Report{Frame: uint64(i)}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	h := hub.History()
	if len(h) != 3 || h[0].Frame != 3 || h[2].Frame != 5 {
		t.Fatalf("unexpected history %+v", h)
	}
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub(10)
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	_ = hub.Record(stream.Report{Frame: 1})
	_ = hub.Record(stream.Report{Frame: 2})
	if hub.Dropped() != 1 {
		t.Fatalf("expected one dropped report, got %d", hub.Dropped())
	}
	var r stream.Report
	if err := json.Unmarshal(<-ch, &r); err != nil || r.Frame != 1 {
		t.Fatalf("first report %+v (%v)", r, err)
	}

	cancel()
	cancel()
	if hub.Subscribers() != 0 {
		t.Fatalf("subscriber not removed")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed")
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(NewHub(1))
	rr := httptest.NewRecorder()
	srv.handleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("health returned %d %q", rr.Code, rr.Body.String())
	}
}

func TestHandleFrames(t *testing.T) {
	hub := NewHub(5)
	_ = hub.Record(stream.Report{Frame: 1, Loads: 4})
	_ = hub.Record(stream.Report{Frame: 2, Hits: 4})
	srv := newTestServer(hub)

	rr := httptest.NewRecorder()
	srv.handleFrames(rr, httptest.NewRequest(http.MethodGet, "/frames", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var got []stream.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Loads != 4 || got[1].Hits != 4 {
		t.Fatalf("unexpected frames %+v", got)
	}

	rr = httptest.NewRecorder()
	srv.handleFrames(rr, httptest.NewRequest(http.MethodPost, "/frames", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestHandleChunks(t *testing.T) {
	srv := newTestServer(NewHub(1))
	rr := httptest.NewRecorder()
	srv.handleChunks(rr, httptest.NewRequest(http.MethodGet, "/chunks", nil))

	var got struct {
		Stats  world.Stats `json:"stats"`
		Chunks []ChunkView `json:"chunks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Stats.Loaded != 1 || len(got.Chunks) != 1 {
		t.Fatalf("unexpected chunks %+v", got)
	}
	c := got.Chunks[0]
	if c.Coord != (world.ChunkCoord{X: 1, Y: 0, Z: -2}) || c.Origin != [3]float32{64, 0, -128} || c.Entity != "entity(3#1)" {
		t.Fatalf("unexpected chunk view %+v", c)
	}
}

func TestWebsocketStreamsReports(t *testing.T) {
	hub := NewHub(5)
	srv := newTestServer(hub)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	_ = hub.Record(stream.Report{Frame: 42, Targets: 9})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var r stream.Report
	if err := json.Unmarshal(msg, &r); err != nil || r.Frame != 42 || r.Targets != 9 {
		t.Fatalf("received %s (%v)", msg, err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := newTestServer(NewHub(1))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
}
