package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/NickRemizov/Padel-Galleries/internal/config"
	"github.com/NickRemizov/Padel-Galleries/internal/database"
	"github.com/NickRemizov/Padel-Galleries/internal/database/memory"
	"github.com/NickRemizov/Padel-Galleries/internal/faceindex"
	"github.com/NickRemizov/Padel-Galleries/internal/identity"
)

const testDim = 4

// testConfig creates a minimal recognition config for testing
func testConfig() config.RecognitionConfig {
	return config.RecognitionConfig{
		Dim:              testDim,
		MatchThreshold:   0.5,
		ClusterThreshold: 0.6,
	}
}

// newTestService wires a service against an in-memory store
func newTestService(t *testing.T) (*identity.Service, *memory.Store, *faceindex.Rebuilder) {
	t.Helper()
	store := memory.NewStore()
	index := faceindex.NewIndex(testDim)
	rebuilder := faceindex.NewRebuilder(store, index, testDim)
	t.Cleanup(rebuilder.Close)
	return identity.NewService(store, index, rebuilder, testConfig()), store, rebuilder
}

// seedPerson inserts a person directly into the store
func seedPerson(t *testing.T, store *memory.Store, id, name string) {
	t.Helper()
	if err := store.CreatePerson(context.Background(), &database.Person{ID: id, DisplayName: name}); err != nil {
		t.Fatalf("failed to seed person: %v", err)
	}
}

// seedFace inserts a face directly into the store
func seedFace(t *testing.T, store *memory.Store, id string, descriptor []float32) {
	t.Helper()
	if err := store.CreateFace(context.Background(), &database.FaceRecord{
		ID:         id,
		PhotoID:    "photo-" + id,
		Descriptor: descriptor,
	}); err != nil {
		t.Fatalf("failed to seed face: %v", err)
	}
}

// testDescriptor builds a one-hot descriptor of the test dimension
func testDescriptor(hot int) []float32 {
	v := make([]float32, testDim)
	v[hot] = 1
	return v
}

// jsonRequest creates a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
