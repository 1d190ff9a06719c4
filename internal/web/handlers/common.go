package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NickRemizov/Padel-Galleries/internal/database"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps engine errors to HTTP responses. NotFound and
// validation failures are the caller's problem; everything else is a
// storage failure.
func respondServiceError(w http.ResponseWriter, err error) {
	var ve *database.ValidationError
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":    ve.Reason,
			"face_ids": ve.FaceIDs,
		})
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// personResponse is the JSON shape for a person.
type personResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	FaceCount   int       `json:"face_count,omitempty"`
	PhotoCount  int       `json:"photo_count,omitempty"`
}

func toPersonResponse(p *database.Person) personResponse {
	return personResponse{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt,
		FaceCount:   p.FaceCount,
		PhotoCount:  p.PhotoCount,
	}
}

// faceResponse is the JSON shape for a face record.
type faceResponse struct {
	ID         string    `json:"id"`
	PhotoID    string    `json:"photo_id"`
	BBox       []float64 `json:"bbox,omitempty"`
	DetScore   float64   `json:"det_score"`
	PersonID   *string   `json:"person_id"`
	Verified   bool      `json:"verified"`
	Confidence *float64  `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

func toFaceResponse(f *database.FaceRecord) faceResponse {
	return faceResponse{
		ID:         f.ID,
		PhotoID:    f.PhotoID,
		BBox:       f.BBox,
		DetScore:   f.DetScore,
		PersonID:   f.PersonID,
		Verified:   f.Verified,
		Confidence: f.RecognitionConfidence,
		CreatedAt:  f.CreatedAt,
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
