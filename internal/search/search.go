// Package search ranks index entries against text queries by embedding
// similarity, with per-query user feedback folded into the ranking.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-index/internal/constants"
	"github.com/kozaktomas/photo-index/internal/index"
)

// Source provides the entries to search over.
type Source interface {
	Entries() []index.Entry
}

// Embedder turns a query into a vector. A nil result means embeddings are
// unavailable and keyword matching is used instead.
type Embedder interface {
	EmbedText(ctx context.Context, text string) []float32
}

// FaceSource resolves a person label to the files their face appears in,
// so queries can name labeled identities directly.
type FaceSource interface {
	FilesFor(label string) []string
}

// Request is one search call.
type Request struct {
	Query      string
	Limit      int
	Offset     int
	Confidence float64  // acceptance threshold before relaxation
	FileTypes  []string // optional extension filter, e.g. ["jpg", "png"]
}

// Result is one ranked file.
type Result struct {
	FileID    string  `json:"file_id"`
	Path      string  `json:"path"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Score     float64 `json:"score"`
	Confirmed bool    `json:"confirmed,omitempty"`
}

// Response is one page of results.
type Response struct {
	Results   []Result `json:"results"`
	Total     int      `json:"total"`
	HasMore   bool     `json:"has_more"`
	Threshold float64  `json:"threshold"` // threshold actually applied to this page
}

// Searcher ranks entries from a source.
type Searcher struct {
	source   Source
	embedder Embedder
	feedback *FeedbackStore
	faces    FaceSource // optional
}

func NewSearcher(source Source, embedder Embedder, feedback *FeedbackStore, faces FaceSource) *Searcher {
	return &Searcher{
		source:   source,
		embedder: embedder,
		feedback: feedback,
		faces:    faces,
	}
}

// Search returns one page of ranked results. Paging past the first page
// relaxes the acceptance threshold one step per page down to a fixed floor,
// so "load more" surfaces weaker matches instead of an empty page.
func (s *Searcher) Search(ctx context.Context, req Request) Response {
	req = normalizeRequest(req)
	threshold := effectiveThreshold(req.Confidence, req.Offset, req.Limit)

	var fb QueryFeedback
	if s.feedback != nil {
		fb = s.feedback.For(req.Query)
	}
	confirmed := map[string]bool{}
	for _, id := range fb.Confirmed {
		confirmed[id] = true
	}
	rejected := map[string]bool{}
	for _, id := range fb.Rejected {
		rejected[id] = true
	}

	embedding := s.embedder.EmbedText(ctx, req.Query)
	query := NormalizeQuery(req.Query)
	types := typeFilter(req.FileTypes)

	// Files whose labeled face matches the query rank at least as well as a
	// keyword label hit, even when their embedding score is weak.
	named := map[string]bool{}
	if s.faces != nil && query != "" {
		for _, id := range s.faces.FilesFor(query) {
			named[id] = true
		}
	}

	entries := s.source.Entries()
	byID := map[string]index.FileIndex{}

	var scored []Result
	for _, entry := range entries {
		record := entry.Index
		byID[entry.ID] = record

		if types != nil && !types[record.Type] {
			continue
		}
		if rejected[entry.ID] || confirmed[entry.ID] {
			continue
		}

		sc := score(query, embedding, record)
		if named[entry.ID] && sc < faceLabelScore {
			sc = faceLabelScore
		}
		if sc < threshold {
			continue
		}
		scored = append(scored, Result{
			FileID: entry.ID,
			Path:   record.Path,
			Name:   record.Name,
			Type:   record.Type,
			Score:  sc,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Path < scored[j].Path
	})

	// Confirmed results go first, in the order they were confirmed.
	var ranked []Result
	for _, id := range fb.Confirmed {
		record, ok := byID[id]
		if !ok {
			continue
		}
		if types != nil && !types[record.Type] {
			continue
		}
		ranked = append(ranked, Result{
			FileID:    id,
			Path:      record.Path,
			Name:      record.Name,
			Type:      record.Type,
			Score:     score(query, embedding, record),
			Confirmed: true,
		})
	}
	ranked = append(ranked, scored...)

	total := len(ranked)

	// The offset skips what earlier, stricter pages could have shown: the
	// pinned results plus everything at or above the previous page's
	// threshold. Results that only cleared the bar after this page's
	// relaxation stay reachable. The raw offset still applies when earlier
	// pages were full.
	start := req.Offset
	if start > 0 {
		prev := effectiveThreshold(req.Confidence, req.Offset-req.Limit, req.Limit)
		shown := total - len(scored)
		for _, r := range scored {
			if r.Score >= prev {
				shown++
			}
		}
		if shown < start {
			start = shown
		}
	}
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}

	return Response{
		Results:   ranked[start:end],
		Total:     total,
		HasMore:   end < total || threshold > constants.MinSearchConfidence,
		Threshold: threshold,
	}
}

// Keyword weights: a filename hit beats a label hit beats a content hit.
const (
	nameMatchScore    = 1.0
	faceLabelScore    = 0.9
	contentMatchScore = 0.7
)

// score rates one record against the query. Embedding similarity is used when
// both sides have vectors; otherwise keyword matching on the name, content
// and labels stands in so search still works without any model.
func score(query string, embedding []float32, record index.FileIndex) float64 {
	if embedding != nil && record.TextEmbedding != nil {
		return CosineSimilarity(embedding, record.TextEmbedding)
	}
	if query == "" {
		return 0
	}

	if strings.Contains(NormalizeQuery(record.Name), query) {
		return nameMatchScore
	}
	for _, obj := range record.Objects {
		if strings.Contains(NormalizeQuery(obj.Label), query) {
			return faceLabelScore
		}
	}
	for _, face := range record.Faces {
		if strings.Contains(NormalizeQuery(face.Label), query) {
			return faceLabelScore
		}
	}
	if record.TextContent != "" && strings.Contains(NormalizeQuery(record.TextContent), query) {
		return contentMatchScore
	}
	return 0
}

func normalizeRequest(req Request) Request {
	if req.Limit <= 0 {
		req.Limit = constants.DefaultSearchLimit
	}
	if req.Limit > constants.MaxSearchLimit {
		req.Limit = constants.MaxSearchLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Confidence <= 0 {
		req.Confidence = constants.DefaultSearchConfidence
	}
	if req.Confidence > 1 {
		req.Confidence = 1
	}
	return req
}

// effectiveThreshold relaxes the requested confidence one step per page, never
// dropping below the floor.
func effectiveThreshold(confidence float64, offset, limit int) float64 {
	page := offset / limit
	threshold := confidence - constants.ConfidenceRelaxStep*float64(page)
	if threshold < constants.MinSearchConfidence {
		threshold = constants.MinSearchConfidence
	}
	return threshold
}

func typeFilter(fileTypes []string) map[string]bool {
	if len(fileTypes) == 0 {
		return nil
	}
	types := map[string]bool{}
	for _, t := range fileTypes {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t != "" {
			types[t] = true
		}
	}
	if len(types) == 0 {
		return nil
	}
	return types
}
