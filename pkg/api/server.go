// Package api provides a local HTTP/WebSocket server exposing the crop
// engine's introspection surface: cache statistics, performance analytics,
// device capability, maintenance triggers, and a live decision feed.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/crop"
	"github.com/dlevesque1980/dailywallpaper-sub000/util/log"
	"github.com/gorilla/websocket"
)

// DefaultAddr is the loopback address the server binds by default.
const DefaultAddr = "127.0.0.1:49452"

// Engine is the slice of the processor the server needs.
type Engine interface {
	CacheStats() crop.CacheStatsInfo
	ClearCache() error
	PerformMaintenance(ttl time.Duration, maxEntries int) (expired, evicted int64, err error)
	InvalidateForImage(imageURL string) (int64, error)
	DeviceCapabilityInfo() crop.DeviceInfo
	PerformanceAnalytics() crop.PerfSnapshot
	SetDecisionHook(hook func(imageID string, result crop.Result))
}

// Server is the local REST/WebSocket introspection server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader
	engine     Engine
	addr       string

	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
}

// NewServer creates a server over the given engine.
func NewServer(engine Engine, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		mux: http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		engine:  engine,
		addr:    addr,
		clients: make(map[*websocket.Conn]bool),
	}
	s.setupRoutes()
	engine.SetDecisionHook(s.broadcastDecision)
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.enableCORS(s.handleHealth))
	s.mux.HandleFunc("/stats", s.enableCORS(s.handleStats))
	s.mux.HandleFunc("/analytics", s.enableCORS(s.handleAnalytics))
	s.mux.HandleFunc("/device", s.enableCORS(s.handleDevice))
	s.mux.HandleFunc("/maintenance", s.enableCORS(s.handleMaintenance))
	s.mux.HandleFunc("/invalidate", s.enableCORS(s.handleInvalidate))
	s.mux.HandleFunc("/ws", s.handleWebSocket)
}

// enableCORS adds CORS headers to the handler.
func (s *Server) enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server. This call blocks.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down and closes every WebSocket client.
func (s *Server) Stop() error {
	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
	s.clientsMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(context.Background())
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.CacheStats())
}

func (s *Server) handleAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.PerformanceAnalytics())
}

func (s *Server) handleDevice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.DeviceCapabilityInfo())
}

// maintenanceRequest is the POST body for /maintenance.
type maintenanceRequest struct {
	TTLHours   int  `json:"ttl_hours"`
	MaxEntries int  `json:"max_entries"`
	Clear      bool `json:"clear"`
}

func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req maintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if req.Clear {
		if err := s.engine.ClearCache(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "cleared"})
		return
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	expired, evicted, err := s.engine.PerformMaintenance(ttl, req.MaxEntries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int64{"expired": expired, "evicted": evicted})
}

// invalidateRequest is the POST body for /invalidate.
type invalidateRequest struct {
	ImageURL string `json:"image_url"`
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageURL == "" {
		http.Error(w, "image_url required", http.StatusBadRequest)
		return
	}

	removed, err := s.engine.InvalidateForImage(req.ImageURL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int64{"removed": removed})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	go s.readPump(conn)
}

// readPump drains inbound frames (clients only listen, but control frames
// still need a reader) and removes the client as soon as the connection
// errors out.
func (s *Server) readPump(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if s.clients[conn] {
		conn.Close()
		delete(s.clients, conn)
	}
}

// clientCount reports the number of connected feed clients.
func (s *Server) clientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// decisionEvent is the message broadcast for each completed crop decision.
type decisionEvent struct {
	Type       string  `json:"type"`
	ImageID    string  `json:"image_id"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
	FromCache  bool    `json:"from_cache"`
	DurationMs int64   `json:"duration_ms"`
}

// broadcastDecision pushes a completed decision to every connected client.
func (s *Server) broadcastDecision(imageID string, result crop.Result) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	msg := decisionEvent{
		Type:       "crop_decision",
		ImageID:    imageID,
		Strategy:   result.BestCrop.Strategy,
		Confidence: result.BestCrop.Confidence,
		FromCache:  result.FromCache,
		DurationMs: result.ProcessingTime.Milliseconds(),
	}

	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			log.Printf("Failed to broadcast to client: %v", err)
			client.Close()
			delete(s.clients, client)
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debugf("API: encoding response: %v", err)
	}
}
