// Package httpapi exposes the calswap HTTP/JSON API handlers.
package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"calswap/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	events  service.EventService
	swaps   service.SwapService
	signKey []byte
	log     *zap.Logger
}

// New constructs an HTTP server with injected services.
func New(auth service.AuthService, events service.EventService, swaps service.SwapService, signKey []byte, log *zap.Logger) *Server {
	return &Server{auth: auth, events: events, swaps: swaps, signKey: signKey, log: log}
}

// Routes returns the full handler tree with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.HandleFunc("POST /api/events", s.requireAuth(s.handleCreateEvent))
	mux.HandleFunc("GET /api/events", s.requireAuth(s.handleListEvents))
	mux.HandleFunc("GET /api/events/{id}", s.requireAuth(s.handleGetEvent))
	mux.HandleFunc("PATCH /api/events/{id}", s.requireAuth(s.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/events/{id}", s.requireAuth(s.handleDeleteEvent))
	mux.HandleFunc("PUT /api/events/{id}/status", s.requireAuth(s.handleSetStatus))

	mux.HandleFunc("POST /api/swaps", s.requireAuth(s.handlePropose))
	mux.HandleFunc("POST /api/swaps/{id}/respond", s.requireAuth(s.handleRespond))
	mux.HandleFunc("GET /api/swaps/incoming", s.requireAuth(s.handleListIncoming))
	mux.HandleFunc("GET /api/swaps/outgoing", s.requireAuth(s.handleListOutgoing))

	return Recover(s.log, RequestLogger(s.log, mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
