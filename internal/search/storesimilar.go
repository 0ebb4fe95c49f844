package search

import (
	"fmt"

	"github.com/kozaktomas/photo-index/internal/constants"
	"github.com/kozaktomas/photo-index/internal/index"
)

// Finder locates files similar to an indexed file.
type Finder interface {
	Similar(fileID string, k int) ([]Result, error)
}

// VectorStore ranks stored entries by embedding distance, typically inside
// the database.
type VectorStore interface {
	Similar(embedding []float32, limit int) ([]index.Entry, error)
}

// StoreSimilar answers similar-file lookups through a vector store, so the
// ranking happens where the embeddings live instead of in memory.
type StoreSimilar struct {
	source Source
	store  VectorStore
}

func NewStoreSimilar(source Source, store VectorStore) *StoreSimilar {
	return &StoreSimilar{
		source: source,
		store:  store,
	}
}

// Similar returns up to k files ranked by closeness to the given file's
// embedding, with the file itself excluded.
func (s *StoreSimilar) Similar(fileID string, k int) ([]Result, error) {
	if k <= 0 {
		k = constants.DefaultSimilarLimit
	}

	var vector []float32
	for _, entry := range s.source.Entries() {
		if entry.ID == fileID {
			vector = entry.Index.TextEmbedding
			break
		}
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("file %q has no embedding", fileID)
	}

	// Ask for one extra entry since the file itself is its own closest match.
	entries, err := s.store.Similar(vector, k+1)
	if err != nil {
		return nil, fmt.Errorf("could not query similar files: %w", err)
	}

	results := make([]Result, 0, k)
	for _, entry := range entries {
		if entry.ID == fileID {
			continue
		}
		results = append(results, Result{
			FileID: entry.ID,
			Path:   entry.Index.Path,
			Name:   entry.Index.Name,
			Type:   entry.Index.Type,
			Score:  CosineSimilarity(vector, entry.Index.TextEmbedding),
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}
