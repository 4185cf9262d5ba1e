// Package api provides the HTTP server for heatlens.
//
// It exposes the dashboard state, selection and retry endpoints, a
// WebSocket stream of state snapshots, and the embedded web UI.
package api

import (
	"context"
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/finlens/heatlens/internal/config"
	"github.com/finlens/heatlens/internal/controller"
	"github.com/finlens/heatlens/internal/heatmap"
	"github.com/finlens/heatlens/web"
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	client  *heatmap.Client
	ctrl    *controller.Controller
	wsHub   *WSHub
	serveUI bool // when true, serve the embedded web UI at /
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) (*Server, error) {
	timeout := heatmap.DefaultTimeout
	if cfg.Backend.TimeoutSec > 0 {
		timeout = time.Duration(cfg.Backend.TimeoutSec) * time.Second
	}
	client := heatmap.NewClient(cfg.BackendBaseURL(), timeout)

	srv := &Server{
		cfg:     cfg,
		client:  client,
		ctrl:    controller.New(context.Background(), client),
		wsHub:   NewWSHub(),
		serveUI: true, // serve embedded web UI by default
	}

	// Every state transition goes out to all connected sockets.
	srv.ctrl.Subscribe(func(snap controller.Snapshot) {
		srv.wsHub.Broadcast(WSMessage{Type: "state", Data: snap})
	})

	srv.router = srv.buildRouter()
	return srv, nil
}

// SetServeUI controls whether the embedded web UI is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Controller returns the page-state controller for testing.
func (s *Server) Controller() *controller.Controller {
	return s.ctrl
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Kick off the catalog fetch so the first page load has data.
	s.ctrl.Initialize()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Dashboard state
		r.Get("/state", s.handleState)
		r.Get("/periods", s.handlePeriods)

		// Selection
		r.Post("/select/index", s.handleSelectIndex)
		r.Post("/select/period", s.handleSelectPeriod)

		// Retry the failed fetch
		r.Post("/retry", s.handleRetry)

		// WebSocket state stream
		r.Get("/ws", s.handleWebSocket)
	})

	// Serve embedded web UI (SPA with fallback to index.html)
	if s.serveUI {
		s.mountSPA(r, web.DistFS())
	}

	return r
}

// mountSPA serves the embedded static export as a single-page app.
// Known files are served directly; all other paths fall back to
// index.html for client-side routing.
func (s *Server) mountSPA(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServer(http.FS(distFS))

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		// Try to open the requested file from the embedded FS
		f, err := distFS.Open(rPath)
		if err != nil {
			// File not found — serve index.html for SPA client-side routing
			serveIndexHTML(w, r, distFS)
			return
		}
		f.Close()

		if rPath == "index.html" || strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}

		fileServer.ServeHTTP(w, r)
	})
}

// serveIndexHTML reads and serves the embedded index.html for SPA fallback.
func serveIndexHTML(w http.ResponseWriter, r *http.Request, distFS fs.FS) {
	data, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SelectIndexRequest is the body for POST /api/v1/select/index.
type SelectIndexRequest struct {
	Index string `json:"index"`
}

// SelectPeriodRequest is the body for POST /api/v1/select/period.
type SelectPeriodRequest struct {
	Period string `json:"period"`
}

// PeriodOption is one selectable return-period lens.
type PeriodOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// RetryResult reports whether a retry started a fetch.
type RetryResult struct {
	Started bool                `json:"started"`
	State   controller.Snapshot `json:"state"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    "dev",
			"backend":    s.client.BaseURL(),
			"ws_clients": s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.ctrl.Snapshot(),
	})
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	options := []PeriodOption{{Value: heatmap.PeriodCurrent.String(), Label: "Current Value"}}
	for _, p := range heatmap.Periods() {
		options = append(options, PeriodOption{Value: p.String(), Label: periodLabel(p)})
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    options,
	})
}

func (s *Server) handleSelectIndex(w http.ResponseWriter, r *http.Request) {
	var req SelectIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An empty index is valid: it clears the selection.
	s.ctrl.SelectIndex(req.Index)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.ctrl.Snapshot(),
	})
}

func (s *Server) handleSelectPeriod(w http.ResponseWriter, r *http.Request) {
	var req SelectPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	period, err := heatmap.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.ctrl.SelectPeriod(period)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.ctrl.Snapshot(),
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	started := s.ctrl.Retry()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: RetryResult{
			Started: started,
			State:   s.ctrl.Snapshot(),
		},
	})
}

// ============================================================
// Helpers
// ============================================================

// periodLabel renders a forward period for the period picker.
func periodLabel(p heatmap.Period) string {
	switch p {
	case heatmap.Period1M:
		return "1 Month"
	case heatmap.Period3M:
		return "3 Months"
	case heatmap.Period6M:
		return "6 Months"
	case heatmap.Period1Y:
		return "1 Year"
	case heatmap.Period2Y:
		return "2 Years"
	case heatmap.Period3Y:
		return "3 Years"
	case heatmap.Period4Y:
		return "4 Years"
	default:
		return p.String()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
