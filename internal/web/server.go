// Package web serves the HTTP API over the index, search and face clusters.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/photo-index/internal/config"
	"github.com/kozaktomas/photo-index/internal/faces"
	"github.com/kozaktomas/photo-index/internal/index"
	"github.com/kozaktomas/photo-index/internal/search"
	"github.com/kozaktomas/photo-index/internal/web/middleware"
	"github.com/mordilloSan/go-logger/logger"
)

// Server represents the web server.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server

	indexer   *index.Indexer
	searcher  *search.Searcher
	feedback  *search.FeedbackStore
	similar   search.Finder
	clusterer *faces.Clusterer
}

// NewServer wires the router and middleware stack around the given components.
// runCtx bounds indexing runs started over the API.
func NewServer(runCtx context.Context, cfg *config.Config, host string, port int,
	indexer *index.Indexer, searcher *search.Searcher, feedback *search.FeedbackStore,
	similar search.Finder, clusterer *faces.Clusterer) *Server {

	r := chi.NewRouter()
	s := &Server{
		config:    cfg,
		router:    r,
		indexer:   indexer,
		searcher:  searcher,
		feedback:  feedback,
		similar:   similar,
		clusterer: clusterer,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes(runCtx)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // long timeout for progress streams
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logger.Infof("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Infof("Shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
