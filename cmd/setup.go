package cmd

import (
	"context"
	"fmt"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/kozaktomas/photo-index/internal/config"
	"github.com/kozaktomas/photo-index/internal/faces"
	"github.com/kozaktomas/photo-index/internal/index"
	"github.com/kozaktomas/photo-index/internal/models"
	"github.com/kozaktomas/photo-index/internal/search"
	"github.com/kozaktomas/photo-index/internal/store"
	"github.com/kozaktomas/photo-index/internal/store/postgres"
)

// components holds the wired application services shared by the CLI commands.
type components struct {
	cfg       *config.Config
	provider  *models.Provider
	clusterer *faces.Clusterer
	indexer   *index.Indexer
	feedback  *search.FeedbackStore
	searcher  *search.Searcher
	similar   search.Finder
	hnsw      *search.SimilarIndex // nil when similar lookups run in the database
}

// buildComponents wires the full service graph from configuration. The model
// provider is initialized best-effort: when the model server is unreachable
// the extraction pipeline degrades to filesystem metadata and keyword search.
func buildComponents(ctx context.Context) (*components, error) {
	cfg := config.Load()

	provider := models.NewProvider(cfg)
	if err := provider.Initialize(ctx); err != nil {
		logger.Warnf("Model provider unavailable, indexing without analysis: %v", err)
	}

	clusterer, err := faces.NewClusterer(faces.NewFileStore(cfg.ClustersFilePath()), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load face clusters: %w", err)
	}

	var entries index.Store = store.NewFileStore(cfg.IndexFilePath())
	var pg *postgres.Store
	if cfg.Database.URL != "" {
		pg, err = postgres.New(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		entries = pg
	}

	indexer := index.NewIndexer(index.NewExtractor(provider, cfg.Permissions), entries, clusterer)
	feedback := search.NewFeedbackStore(cfg.FeedbackFilePath())
	searcher := search.NewSearcher(indexer, provider, feedback, clusterer)

	app := &components{
		cfg:       cfg,
		provider:  provider,
		clusterer: clusterer,
		indexer:   indexer,
		feedback:  feedback,
		searcher:  searcher,
	}

	if pg != nil {
		// pgvector ranks entries in the database, no in-memory graph needed.
		app.similar = search.NewStoreSimilar(indexer, pg)
	} else {
		app.hnsw = search.NewSimilarIndex()
		app.hnsw.Rebuild(indexer.Entries())
		app.similar = app.hnsw
	}

	return app, nil
}
