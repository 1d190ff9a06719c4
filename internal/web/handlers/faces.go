package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NickRemizov/Padel-Galleries/internal/identity"
)

// FacesHandler serves descriptor matching and assignment endpoints.
type FacesHandler struct {
	service *identity.Service
}

// NewFacesHandler creates a faces handler.
func NewFacesHandler(service *identity.Service) *FacesHandler {
	return &FacesHandler{service: service}
}

// Match handles POST /faces/match: look up the person most similar to the
// given descriptor. Responds with match: null when nothing reaches the
// threshold.
func (h *FacesHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Descriptor []float32 `json:"descriptor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Descriptor) == 0 {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	match, err := h.service.Match(r.Context(), req.Descriptor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"match": match})
}

// Assign handles POST /faces/assign: link a face to a person, verified or
// not. The automatic pipeline uses verified=false with the match score as
// confidence; operators use verified=true.
func (h *FacesHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FaceID     string  `json:"face_id"`
		PersonID   string  `json:"person_id"`
		Verified   bool    `json:"verified"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FaceID == "" || req.PersonID == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.service.RecordAssignment(r.Context(), req.FaceID, req.PersonID, req.Verified, req.Confidence); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Clear handles POST /faces/{id}/clear: detach a face from any person.
func (h *FacesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearAssignment(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
