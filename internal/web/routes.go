package web

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-index/internal/web/handlers"
)

func (s *Server) setupRoutes(runCtx context.Context) {
	indexHandler := handlers.NewIndexHandler(runCtx, s.indexer, s.config.Index.IgnorePatterns)
	searchHandler := handlers.NewSearchHandler(s.searcher, s.feedback, s.similar, s.indexer)
	facesHandler := handlers.NewFacesHandler(s.clusterer)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Indexing
		r.Post("/index", indexHandler.Start)
		r.Get("/index/progress", indexHandler.Progress)
		r.Get("/index/events", indexHandler.Events)
		r.Get("/index/stats", indexHandler.Stats)
		r.Get("/index/entities", indexHandler.Entities)

		// Search
		r.Get("/search", searchHandler.Search)
		r.Post("/search/feedback", searchHandler.Feedback)
		r.Post("/search/similar", searchHandler.Similar)

		// Face clusters
		r.Get("/faces", facesHandler.List)
		r.Get("/faces/{id}", facesHandler.Get)
		r.Put("/faces/{id}/label", facesHandler.Label)
		r.Put("/faces/{id}/hidden", facesHandler.Hidden)
	})
}
