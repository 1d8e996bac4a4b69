// Package dashboard serves a read-only view of the monitor's state: the
// recent trade feed, active swarms, and alert history. The polling loop
// publishes an immutable snapshot after each cycle; handlers and websocket
// pushes only ever read the latest published snapshot, so render cadence is
// fully decoupled from poll cadence and no consumer can observe a
// half-updated window.
//
// The dashboard never executes trades; action links are advisory deep links
// the operator confirms manually on the venue.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/whalewatch/swarm/internal/logger"
	"github.com/whalewatch/swarm/internal/models"
)

// Snapshot is the immutable per-cycle state published to the dashboard.
type Snapshot struct {
	UpdatedAt   time.Time      `json:"updated_at"`
	WalletCount int            `json:"wallet_count"`
	CycleCount  int64          `json:"cycle_count"`
	Trades      []models.Trade `json:"trades"` // most recent first, display-capped
	Swarms      []models.Swarm `json:"swarms"`
	Alerts      []models.Alert `json:"alerts"`
	Warnings    []string       `json:"warnings"` // per-wallet fetch warnings from the last cycle
}

// Server is the dashboard HTTP server.
type Server struct {
	maxTrades    int
	pushInterval time.Duration
	httpServer   *http.Server
	upgrader     websocket.Upgrader

	mu      sync.RWMutex
	current Snapshot
}

// NewServer creates a dashboard server listening on addr.
func NewServer(addr string, maxTrades int, pushInterval time.Duration) *Server {
	s := &Server{
		maxTrades:    maxTrades,
		pushInterval: pushInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/swarms", s.handleSwarms)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleIndex)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Publish replaces the current snapshot, capping the trade feed at the
// display limit. Safe to call concurrently with readers.
func (s *Server) Publish(snap Snapshot) {
	if len(snap.Trades) > s.maxTrades {
		snap.Trades = snap.Trades[:s.maxTrades]
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

// Snapshot returns the latest published snapshot.
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		logger.Info("Dashboard listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Dashboard server error: %v", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Snapshot())
}

func (s *Server) handleTrades(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Snapshot().Trades)
}

func (s *Server) handleSwarms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Snapshot().Swarms)
}

// handleWS pushes the latest snapshot to the client on the push interval
// until the client disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.Snapshot()); err != nil {
				return // client disconnected
			}
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, indexHTML)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode dashboard response: %v", err)
	}
}
