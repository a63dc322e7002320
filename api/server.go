// Package api provides the HTTP REST API server for the Pivot Note
// dashboard backend.
//
// It exposes endpoints for trend collection, normalization, intelligence
// analysis, script assembly, deep dives, and WebSocket streaming of
// pipeline events.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pivotnote/pulse/internal/collector"
	"github.com/pivotnote/pulse/internal/config"
	"github.com/pivotnote/pulse/internal/intel"
	"github.com/pivotnote/pulse/internal/llm"
	"github.com/pivotnote/pulse/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	llm      *llm.Router
	analyzer *intel.Analyzer
	serp     *collector.SerpAPIClient
	news     *collector.NewsSource
	db       *store.Client // nil when Supabase is not configured
	wsHub    *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) (*Server, error) {
	router, err := llm.NewRouterFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("LLM setup failed: %w", err)
	}

	opts := &llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	srv := &Server{
		cfg:      cfg,
		llm:      router,
		analyzer: intel.NewAnalyzer(router, opts),
		news:     collector.NewNewsSource(cfg.Collection.ContextFeeds),
		wsHub:    NewWSHub(),
	}

	if cfg.SerpAPI.APIKey != "" {
		srv.serp = collector.NewSerpAPIClient(cfg.SerpAPI.APIKey,
			collector.WithSerpAPIWindow(cfg.Collection.WindowHours))
	}

	db, err := store.New(cfg.Supabase.URL, cfg.Supabase.Key)
	switch err {
	case nil:
		srv.db = db
	case store.ErrNotConfigured:
		log.Println("api: supabase not configured, running without persistence")
	default:
		return nil, err
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
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
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Extraction / normalization (pure, no persistence needed)
		r.Post("/extract", s.handleExtract)
		r.Post("/normalize", s.handleNormalize)

		// Collection
		r.Post("/collect/search", s.handleCollectSearch)
		r.Post("/collect/manual", s.handleCollectManual)
		r.Get("/prompts/collection", s.handleCollectionPrompt)

		// Stored trends
		r.Get("/trends/latest", s.handleLatestTrends)
		r.Get("/trends/{date}", s.handleTrendsByDate)

		// Analysis & production
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/assemble", s.handleAssemble)
		r.Get("/insights/{date}", s.handleInsights)

		// Deep dives
		r.Post("/deepdive", s.handleDeepdive)
		r.Get("/deepdives", s.handleListDeepdives)
		r.Post("/deepdives/{id}/finalize", s.handleFinalizeDeepdive)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ── WebSocket Hub ──

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and pipeline event broadcasting.
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
