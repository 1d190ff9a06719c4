package database

import (
	"context"
)

// PersonReader provides read-only access to people.
type PersonReader interface {
	// GetPerson retrieves a person by id, ErrNotFound if absent.
	GetPerson(ctx context.Context, personID string) (*Person, error)
	// ListPeople returns all people, optionally with face/photo counts.
	ListPeople(ctx context.Context, includeStats bool) ([]Person, error)
}

// PersonWriter provides write access to people.
type PersonWriter interface {
	PersonReader

	// CreatePerson stores a new person. The ID must be set by the caller.
	CreatePerson(ctx context.Context, person *Person) error
	// UpdatePerson updates display name and avatar, ErrNotFound if absent.
	UpdatePerson(ctx context.Context, person *Person) error
	// DeletePerson removes a person and detaches every face linked to them.
	// Detached faces return to the unassigned pool with their descriptors
	// intact. ErrNotFound if absent.
	DeletePerson(ctx context.Context, personID string) error
}

// FaceReader provides read-only access to face records.
type FaceReader interface {
	// GetFace retrieves a face by id, ErrNotFound if absent.
	GetFace(ctx context.Context, faceID string) (*FaceRecord, error)
	// GetPersonFaces returns all faces currently linked to a person,
	// ordered by photo id then face id.
	GetPersonFaces(ctx context.Context, personID string) ([]FaceRecord, error)
	// CountFaces returns the total number of stored faces.
	CountFaces(ctx context.Context) (int, error)
	// AllVerifiedDescriptors returns one IndexEntry per verified face.
	// Each call re-scans current state; it is the only feed for index rebuilds.
	AllVerifiedDescriptors(ctx context.Context) ([]IndexEntry, error)
	// UnassignedFaces returns faces without a person. A nil or empty
	// photoIDs slice means the whole corpus; otherwise the pool is limited
	// to the given photos. Results are ordered by face id.
	UnassignedFaces(ctx context.Context, photoIDs []string) ([]FaceRecord, error)
}

// FaceWriter provides write access to face assignment state.
// Descriptors themselves are written by the upstream detection pipeline
// and never change here.
type FaceWriter interface {
	FaceReader

	// CreateFace stores a new detected face (used by the ingest pipeline
	// and tests). The ID must be set by the caller.
	CreateFace(ctx context.Context, face *FaceRecord) error
	// SetAssignment links a face to a person. Idempotent; ErrNotFound if
	// the face or person is unknown. Verified faces get confidence 1.0.
	SetAssignment(ctx context.Context, faceID, personID string, verified bool, confidence float64) error
	// ClearAssignment detaches a face (person=null, verified=false,
	// confidence=null). ErrNotFound if the face is unknown; clearing an
	// already-unassigned face succeeds as a no-op.
	ClearAssignment(ctx context.Context, faceID string) error
	// BatchSetVerified marks the given faces verified for the person in a
	// single transaction. Faces not currently linked to the person are
	// skipped, not errored. Returns the number of rows actually updated.
	BatchSetVerified(ctx context.Context, personID string, faceIDs []string) (int, error)
	// Unlink detaches a face from a person. Returns 1 if the face was
	// linked to the person and is now unassigned, 0 otherwise.
	Unlink(ctx context.Context, personID, faceID string) (int, error)
	// PromoteCluster creates the person and assigns + verifies all faces
	// in one transaction. Every face must exist and be unassigned at
	// commit time; otherwise a ValidationError lists the offending ids
	// and nothing is applied.
	PromoteCluster(ctx context.Context, person *Person, faceIDs []string) error
}

// Store combines full read/write access for people and faces.
type Store interface {
	PersonWriter
	FaceWriter
}
