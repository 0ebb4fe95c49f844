package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/photo-index/internal/index"
	"github.com/kozaktomas/photo-index/internal/search"
	"github.com/mordilloSan/go-logger/logger"
)

// SearchHandler exposes semantic search, feedback and similar-file lookup.
type SearchHandler struct {
	searcher *search.Searcher
	feedback *search.FeedbackStore
	similar  search.Finder
	indexer  *index.Indexer
}

func NewSearchHandler(searcher *search.Searcher, feedback *search.FeedbackStore, similar search.Finder, indexer *index.Indexer) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		feedback: feedback,
		similar:  similar,
		indexer:  indexer,
	}
}

// Search handles GET /search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	req := search.Request{
		Query:  query,
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if raw := r.URL.Query().Get("confidence"); raw != "" {
		confidence, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid confidence")
			return
		}
		req.Confidence = confidence
	}
	if raw := r.URL.Query().Get("file_types"); raw != "" {
		req.FileTypes = strings.Split(raw, ",")
	}

	respondJSON(w, http.StatusOK, h.searcher.Search(r.Context(), req))
}

// FeedbackRequest is the body of POST /search/feedback.
type FeedbackRequest struct {
	Query    string `json:"query"`
	FileID   string `json:"file_id"`
	Feedback string `json:"feedback"` // "confirmed" or "rejected"
}

// Feedback records a confirmation or rejection for a query result.
func (h *SearchHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var err error
	switch req.Feedback {
	case "confirmed":
		err = h.feedback.Confirm(req.Query, req.FileID)
	case "rejected":
		err = h.feedback.Reject(req.Query, req.FileID)
	default:
		respondError(w, http.StatusBadRequest, "feedback must be confirmed or rejected")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Debugf("Recorded %s feedback for query %q", req.Feedback, sanitizeForLog(req.Query))
	respondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// SimilarRequest is the body of POST /search/similar.
type SimilarRequest struct {
	FileID string `json:"file_id"`
	Limit  int    `json:"limit,omitempty"`
}

// Similar returns files whose embeddings are close to the given file's.
func (h *SearchHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.FileID == "" {
		respondError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	results, err := h.similar.Similar(req.FileID, req.Limit)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	// Fill in file details from the index.
	for i := range results {
		if record, ok := h.indexer.Get(results[i].FileID); ok {
			results[i].Path = record.Path
			results[i].Name = record.Name
			results[i].Type = record.Type
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return value
}
