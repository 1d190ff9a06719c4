package database

import (
	"time"
)

// Person represents a recognized player/person in the galleries.
type Person struct {
	ID          string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time

	// Optional stats (populated by ListPeople with includeStats)
	FaceCount  int
	PhotoCount int
}

// FaceRecord represents a detected face stored in the database.
// The descriptor is immutable once created; only the assignment fields
// (PersonID, Verified, RecognitionConfidence) change over time.
type FaceRecord struct {
	ID         string
	PhotoID    string
	Descriptor []float32
	BBox       []float64 // [x1, y1, x2, y2] in raw pixel coordinates
	DetScore   float64
	CreatedAt  time.Time

	// Assignment state. Verified implies PersonID != nil and
	// RecognitionConfidence == 1.0.
	PersonID              *string
	Verified              bool
	RecognitionConfidence *float64
}

// Assigned reports whether the face is linked to a person.
func (f *FaceRecord) Assigned() bool {
	return f.PersonID != nil
}

// IndexEntry is a (person, descriptor) pair derived from a verified face.
// The identity index is built exclusively from these.
type IndexEntry struct {
	PersonID   string
	Descriptor []float32
}
