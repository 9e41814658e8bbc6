// Package api provides the HTTP API for Kestrel.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/pipeline"
	"github.com/kestrelhq/kestrel/internal/rules"
	"github.com/kestrelhq/kestrel/internal/scorer"
	"github.com/kestrelhq/kestrel/internal/stats"
	"github.com/kestrelhq/kestrel/internal/trainer"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, pipe *pipeline.Pipeline, sc *scorer.Scorer, tr *trainer.Trainer, agg *stats.Aggregator, engine *rules.Engine, version string) *Server {
	handler := NewHandler(repo, pipe, sc, tr, agg, engine, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Transaction submission and retrieval
	router.Post("/transactions", handler.SubmitTransaction)
	router.Get("/transactions", handler.ListTransactions)
	router.Get("/transactions/{id}", handler.GetTransaction)
	router.Post("/transactions/{id}/status", handler.UpdateTransactionStatus)

	// Stand-alone scoring (no persistence)
	router.Post("/score", handler.Score)

	// Statistics
	router.Get("/stats", handler.Stats)
	router.Get("/stats/summary", handler.StatsSummary)

	// Model management
	router.Post("/models/train", handler.TrainModel)
	router.Get("/models", handler.ListModels)
	router.Get("/models/active", handler.GetActiveModel)

	// Risk rule management
	router.Get("/rules", handler.ListRules)
	router.Post("/rules", handler.CreateRule)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
