package search

import (
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/photo-index/internal/constants"
	"github.com/kozaktomas/photo-index/internal/index"
)

// SimilarIndex finds files whose embeddings are close to a given file's,
// backed by an HNSW graph over the index entries.
type SimilarIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	vectors map[string][]float32
}

func NewSimilarIndex() *SimilarIndex {
	return &SimilarIndex{
		vectors: map[string][]float32{},
	}
}

// Rebuild replaces the graph with one built from entries. Entries without
// embeddings are not indexed.
func (s *SimilarIndex) Rebuild(entries []index.Entry) {
	g := hnsw.NewGraph[string]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	vectors := make(map[string][]float32, len(entries))
	for _, entry := range entries {
		if len(entry.Index.TextEmbedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(entry.ID, entry.Index.TextEmbedding))
		vectors[entry.ID] = entry.Index.TextEmbedding
	}

	s.mu.Lock()
	s.graph = g
	s.vectors = vectors
	s.mu.Unlock()
}

// Similar returns up to k file IDs ranked by closeness to the given file's
// embedding, with the file itself excluded.
func (s *SimilarIndex) Similar(fileID string, k int) ([]Result, error) {
	if k <= 0 {
		k = constants.DefaultSimilarLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil {
		return nil, fmt.Errorf("similarity index not built")
	}
	vector, ok := s.vectors[fileID]
	if !ok {
		return nil, fmt.Errorf("file %q has no embedding", fileID)
	}

	// Ask for one extra neighbor since the file itself is its own closest match.
	neighbors := s.graph.Search(vector, k+1)

	results := make([]Result, 0, k)
	for _, n := range neighbors {
		if n.Key == fileID {
			continue
		}
		results = append(results, Result{
			FileID: n.Key,
			Score:  CosineSimilarity(vector, n.Value),
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Count returns the number of indexed embeddings.
func (s *SimilarIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Save exports the graph to path. An empty index removes any stale file.
func (s *SimilarIndex) Save(path string) error {
	if path == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil || len(s.vectors) == 0 {
		_ = os.Remove(path)
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create similarity index file: %w", err)
	}
	defer f.Close()

	if err := s.graph.Export(f); err != nil {
		return fmt.Errorf("could not export similarity index: %w", err)
	}
	return nil
}
