package database

import "testing"

func TestFaceRecord_Assigned(t *testing.T) {
	id := "p1"
	tests := []struct {
		name     string
		face     FaceRecord
		expected bool
	}{
		{"unassigned", FaceRecord{ID: "f1"}, false},
		{"assigned", FaceRecord{ID: "f2", PersonID: &id}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.face.Assigned(); got != tt.expected {
				t.Errorf("Assigned() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{"reason only", &ValidationError{Reason: "bad request"}, "bad request"},
		{"with faces", &ValidationError{Reason: "already assigned", FaceIDs: []string{"f1", "f2"}}, "already assigned: f1, f2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(&ValidationError{Reason: "x"}) {
		t.Error("expected true for ValidationError")
	}
	if IsValidation(ErrNotFound) {
		t.Error("expected false for ErrNotFound")
	}
	if IsValidation(nil) {
		t.Error("expected false for nil")
	}
}
