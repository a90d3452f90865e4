package visualization

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nvandessel/wirelogic/internal/circuit"
	"github.com/nvandessel/wirelogic/internal/simulation"
)

// minStreamInterval bounds how often /ws pushes state to a browser.
const minStreamInterval = 50 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

// Server serves a live view of a running simulation. It steps the simulator
// on its own ticker and accepts interactions over HTTP.
type Server struct {
	sim          *simulation.Simulator
	stepInterval time.Duration
	metrics      *Metrics
	httpServer   *http.Server
	mu           sync.Mutex // guards sim, which is not safe for concurrent use
	addrMu       sync.Mutex
	addr         string
}

// NewServer creates a live view over sim, stepping every stepInterval.
func NewServer(sim *simulation.Simulator, stepInterval time.Duration) *Server {
	if stepInterval <= 0 {
		stepInterval = 16 * time.Millisecond
	}
	return &Server{sim: sim, stepInterval: stepInterval, metrics: NewMetrics()}
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Replace swaps in a new simulator, e.g. after the topology file changed.
// Open pages notice the new part count and reload.
func (s *Server) Replace(sim *simulation.Simulator) {
	s.mu.Lock()
	s.sim = sim
	s.mu.Unlock()
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.addr
}

// Handler returns the HTTP routes without starting the step loop.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/step", s.handleStep)
	mux.HandleFunc("/api/interact", s.handleInteract)
	mux.HandleFunc("/ws", s.handleStream)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// ListenAndServe starts the HTTP server on addr (":0"-style addresses let
// the OS pick a port) and steps the simulation until ctx is cancelled.
// Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = "localhost:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.addrMu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Shutdown leaves hijacked websocket connections alone; deriving
		// request contexts from ctx ends their streams too.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.addrMu.Unlock()

	go s.stepLoop(ctx)

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) stepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.stepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			report := s.sim.Step()
			s.mu.Unlock()
			s.metrics.observeStep(report)
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	refresh := int(max(s.stepInterval, 100*time.Millisecond) / time.Millisecond)
	html, err := renderHTML(s.sim.Circuit(), true, refresh)
	s.mu.Unlock()
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot())
}

func (s *Server) snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := RenderJSON(s.sim.Circuit())
	state["step"] = s.sim.Steps()
	return state
}

// handleStream upgrades to a websocket and pushes the circuit state on
// every step interval until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer ws.Close()

	s.metrics.clients.Inc()
	defer s.metrics.clients.Dec()

	// The page never sends anything; reading only detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := max(s.stepInterval, minStreamInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := ws.WriteJSON(s.snapshot()); err != nil {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-ticker.C:
		}
	}
}

// handleStep runs one step immediately. Useful when the ticker is slow.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	report := s.sim.Step()
	s.mu.Unlock()
	s.metrics.observeStep(report)
	writeJSON(w, report)
}

func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.Atoi(r.URL.Query().Get("part"))
	if err != nil {
		http.Error(w, "missing or invalid 'part' query parameter", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	err = s.sim.Interact(circuit.PartID(id))
	s.mu.Unlock()
	s.metrics.observeInteraction(err)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
