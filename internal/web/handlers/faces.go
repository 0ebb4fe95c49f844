package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-index/internal/faces"
	"github.com/mordilloSan/go-logger/logger"
)

// FacesHandler exposes face identity clusters over HTTP.
type FacesHandler struct {
	clusterer *faces.Clusterer
}

func NewFacesHandler(clusterer *faces.Clusterer) *FacesHandler {
	return &FacesHandler{clusterer: clusterer}
}

// ClusterResponse is one cluster in the API, without the raw descriptors.
type ClusterResponse struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Hidden     bool     `json:"hidden"`
	FaceCount  int      `json:"face_count"`
	ImageCount int      `json:"image_count"`
	FileIDs    []string `json:"file_ids"`
}

func toClusterResponse(c *faces.Cluster) ClusterResponse {
	return ClusterResponse{
		ID:         c.ID,
		Label:      c.Label,
		Hidden:     c.Hidden,
		FaceCount:  c.FaceCount,
		ImageCount: c.ImageCount(),
		FileIDs:    c.FileIDs,
	}
}

// List returns all clusters ordered by image count. Hidden clusters are
// included only when ?hidden=true is set.
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	includeHidden := r.URL.Query().Get("hidden") == "true"

	clusters := []ClusterResponse{}
	for _, cluster := range h.clusterer.List() {
		if cluster.Hidden && !includeHidden {
			continue
		}
		clusters = append(clusters, toClusterResponse(cluster))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"clusters": clusters,
		"total":    len(clusters),
	})
}

// Get returns one cluster by id.
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	cluster, ok := h.clusterer.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "face cluster not found")
		return
	}
	respondJSON(w, http.StatusOK, toClusterResponse(cluster))
}

// LabelRequest is the body of PUT /faces/{id}/label.
type LabelRequest struct {
	Label string `json:"label"`
}

// Label names a cluster.
func (h *FacesHandler) Label(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		respondError(w, http.StatusBadRequest, "label is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.clusterer.SetLabel(id, req.Label); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	logger.Infof("Labeled face cluster %s as %q", id, sanitizeForLog(req.Label))
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HiddenRequest is the body of PUT /faces/{id}/hidden.
type HiddenRequest struct {
	Hidden bool `json:"hidden"`
}

// Hidden hides or unhides a cluster.
func (h *FacesHandler) Hidden(w http.ResponseWriter, r *http.Request) {
	var req HiddenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.clusterer.SetHidden(chi.URLParam(r, "id"), req.Hidden); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
