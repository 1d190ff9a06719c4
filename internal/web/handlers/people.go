package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NickRemizov/Padel-Galleries/internal/identity"
)

// PeopleHandler serves person CRUD and verification endpoints.
type PeopleHandler struct {
	service *identity.Service
}

// NewPeopleHandler creates a people handler.
func NewPeopleHandler(service *identity.Service) *PeopleHandler {
	return &PeopleHandler{service: service}
}

// List handles GET /people. Stats are included unless include_stats=false.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	includeStats := r.URL.Query().Get("include_stats") != "false"

	people, err := h.service.ListPeople(r.Context(), includeStats)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]personResponse, 0, len(people))
	for i := range people {
		out = append(out, toPersonResponse(&people[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /people/{id}.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	person, err := h.service.GetPerson(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPersonResponse(person))
}

type personRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Create handles POST /people.
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	person, err := h.service.CreatePerson(r.Context(), req.DisplayName, req.AvatarURL)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPersonResponse(person))
}

// Update handles PUT /people/{id}.
func (h *PeopleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	person, err := h.service.UpdatePerson(r.Context(), chi.URLParam(r, "id"), req.DisplayName, req.AvatarURL)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPersonResponse(person))
}

// SetAvatar handles PUT /people/{id}/avatar.
func (h *PeopleHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	person, err := h.service.SetAvatar(r.Context(), chi.URLParam(r, "id"), req.AvatarURL)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPersonResponse(person))
}

// Delete handles DELETE /people/{id}. Faces of the deleted person return
// to the unassigned pool.
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePerson(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Faces handles GET /people/{id}/faces.
func (h *PeopleHandler) Faces(w http.ResponseWriter, r *http.Request) {
	faces, err := h.service.PersonFaces(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]faceResponse, 0, len(faces))
	for i := range faces {
		out = append(out, toFaceResponse(&faces[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Verify handles POST /people/{id}/verify with a single face id.
func (h *PeopleHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FaceID string `json:"face_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FaceID == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	count, err := h.service.BatchVerify(r.Context(), chi.URLParam(r, "id"), []string{req.FaceID})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"verified_count": count})
}

// BatchVerify handles POST /people/{id}/batch-verify. The whole batch
// results in a single index rebuild.
func (h *PeopleHandler) BatchVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FaceIDs []string `json:"face_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	count, err := h.service.BatchVerify(r.Context(), chi.URLParam(r, "id"), req.FaceIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"verified_count": count})
}

// Unlink handles POST /people/{id}/unlink with a single face id.
func (h *PeopleHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FaceID string `json:"face_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FaceID == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	count, err := h.service.Unlink(r.Context(), chi.URLParam(r, "id"), req.FaceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unlinked_count": count})
}
