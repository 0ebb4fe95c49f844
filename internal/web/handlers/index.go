package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kozaktomas/photo-index/internal/index"
	"github.com/mordilloSan/go-logger/logger"
)

// IndexHandler exposes indexing runs and index aggregates over HTTP.
type IndexHandler struct {
	indexer        *index.Indexer
	ignorePatterns []string
	runCtx         context.Context // runs outlive their triggering request
}

func NewIndexHandler(runCtx context.Context, indexer *index.Indexer, ignorePatterns []string) *IndexHandler {
	return &IndexHandler{
		indexer:        indexer,
		ignorePatterns: ignorePatterns,
		runCtx:         runCtx,
	}
}

// StartRequest is the body of POST /index.
type StartRequest struct {
	Directory string `json:"directory"`
	Recursive *bool  `json:"recursive,omitempty"` // default true
}

// Start kicks off an indexing run in the background. A 409 means a run is
// already active.
func (h *IndexHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Directory == "" {
		respondError(w, http.StatusBadRequest, "directory is required")
		return
	}

	recursive := true
	if req.Recursive != nil {
		recursive = *req.Recursive
	}

	if err := h.indexer.Start(h.runCtx, req.Directory, recursive, h.ignorePatterns); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	logger.Infof("Indexing run requested for %s", sanitizeForLog(req.Directory))
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":    "started",
		"directory": req.Directory,
	})
}

// Progress returns the state of the current or last run.
func (h *IndexHandler) Progress(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.indexer.Progress())
}

// Events streams progress updates as server-sent events until the run reaches
// a terminal state or the client disconnects.
func (h *IndexHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.indexer.Subscribe()
	defer h.indexer.Unsubscribe(ch)

	sendEvent(w, flusher, h.indexer.Progress())

	for {
		select {
		case <-r.Context().Done():
			return
		case p, ok := <-ch:
			if !ok {
				return
			}
			sendEvent(w, flusher, p)
			if p.Status == index.StatusComplete || p.Status == index.StatusError {
				return
			}
		}
	}
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, p index.Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
	flusher.Flush()
}

// Stats returns file counts and sizes across the index.
func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.indexer.Stats())
}

// Entities returns the face and animal histograms.
func (h *IndexHandler) Entities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.indexer.Entities())
}
