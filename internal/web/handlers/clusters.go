package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/NickRemizov/Padel-Galleries/internal/identity"
)

// ClustersHandler serves clustering and cluster promotion endpoints.
type ClustersHandler struct {
	service *identity.Service
}

// NewClustersHandler creates a clusters handler.
func NewClustersHandler(service *identity.Service) *ClustersHandler {
	return &ClustersHandler{service: service}
}

// Compute handles POST /clusters: group unassigned faces into candidate
// identities. An empty photo_ids list means the whole corpus; threshold 0
// uses the configured default.
func (h *ClustersHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhotoIDs  []string `json:"photo_ids"`
		Threshold float64  `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	clusters, err := h.service.ClusterUnassigned(r.Context(), req.PhotoIDs, req.Threshold)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"clusters": clusters,
		"count":    len(clusters),
	})
}

// FromCluster handles POST /people/from-cluster: promote a cluster into a
// new verified person.
func (h *ClustersHandler) FromCluster(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string   `json:"name"`
		FaceIDs []string `json:"face_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	person, err := h.service.CreatePersonFromCluster(r.Context(), req.Name, req.FaceIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPersonResponse(person))
}
