package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"terrainstream/internal/world"
)

// ChunkSource lists the resident chunks.
type ChunkSource interface {
	Resident() []world.TerrainChunk
	Stats() world.Stats
}

type ChunkView struct {
	Coord    world.ChunkCoord `json:"coord"`
	Origin   [3]float32       `json:"origin"`
	Slot     uint32           `json:"slot"`
	Sequence uint64           `json:"sequence"`
	Entity   string           `json:"entity"`
}

type Server struct {
	addr    string
	hub     *Hub
	chunks  ChunkSource
	logger  *log.Logger
	httpSrv *http.Server

	upgrader websocket.Upgrader
}

func NewServer(addr string, hub *Hub, chunks ChunkSource, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "observer ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Server{
		addr:   addr,
		hub:    hub,
		chunks: chunks,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/frames", s.handleFrames)
	mux.HandleFunc("/chunks", s.handleChunks)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP observer listening on %s", ln.Addr())
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.hub.History())
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resident := s.chunks.Resident()
	views := make([]ChunkView, 0, len(resident))
	for _, c := range resident {
		views = append(views, ChunkView{
			Coord:    c.Coord,
			Origin:   [3]float32(c.Origin),
			Slot:     c.Slot.Index,
			Sequence: c.Sequence,
			Entity:   c.Entity.String(),
		})
	}
	writeJSON(w, struct {
		Stats  world.Stats `json:"stats"`
		Chunks []ChunkView `json:"chunks"`
	}{s.chunks.Stats(), views})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	reports, cancel := s.hub.Subscribe(16)
	defer cancel()

	// The client sends nothing; reading only notices when it goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case b, ok := <-reports:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
