// Package memory provides an in-memory implementation of the database
// interfaces for unit tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NickRemizov/Padel-Galleries/internal/database"
)

// Store is an in-memory database.Store. Every mutating call is atomic
// under the store mutex, mirroring the per-call transaction boundary of
// the PostgreSQL backend.
type Store struct {
	mu     sync.RWMutex
	people map[string]*database.Person
	faces  map[string]*database.FaceRecord

	// Error injection
	ScanError  error // returned by AllVerifiedDescriptors
	WriteError error // returned by all mutating calls
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		people: make(map[string]*database.Person),
		faces:  make(map[string]*database.FaceRecord),
	}
}

func clonePerson(p *database.Person) *database.Person {
	cp := *p
	return &cp
}

func cloneFace(f *database.FaceRecord) *database.FaceRecord {
	cf := *f
	cf.Descriptor = append([]float32(nil), f.Descriptor...)
	cf.BBox = append([]float64(nil), f.BBox...)
	if f.PersonID != nil {
		id := *f.PersonID
		cf.PersonID = &id
	}
	if f.RecognitionConfidence != nil {
		c := *f.RecognitionConfidence
		cf.RecognitionConfidence = &c
	}
	return &cf
}

// GetPerson retrieves a person by id.
func (s *Store) GetPerson(ctx context.Context, personID string) (*database.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[personID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clonePerson(p), nil
}

// ListPeople returns all people ordered by display name then id.
func (s *Store) ListPeople(ctx context.Context, includeStats bool) ([]database.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	people := make([]database.Person, 0, len(s.people))
	for _, p := range s.people {
		cp := *p
		if includeStats {
			photos := make(map[string]struct{})
			for _, f := range s.faces {
				if f.PersonID != nil && *f.PersonID == p.ID {
					cp.FaceCount++
					photos[f.PhotoID] = struct{}{}
				}
			}
			cp.PhotoCount = len(photos)
		}
		people = append(people, cp)
	}
	sort.Slice(people, func(i, j int) bool {
		if people[i].DisplayName != people[j].DisplayName {
			return people[i].DisplayName < people[j].DisplayName
		}
		return people[i].ID < people[j].ID
	})
	return people, nil
}

// CreatePerson stores a new person.
func (s *Store) CreatePerson(ctx context.Context, person *database.Person) error {
	if s.WriteError != nil {
		return s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clonePerson(person)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.people[cp.ID] = cp
	return nil
}

// UpdatePerson updates display name and avatar.
func (s *Store) UpdatePerson(ctx context.Context, person *database.Person) error {
	if s.WriteError != nil {
		return s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.people[person.ID]
	if !ok {
		return database.ErrNotFound
	}
	existing.DisplayName = person.DisplayName
	existing.AvatarURL = person.AvatarURL
	return nil
}

// DeletePerson removes a person and detaches their faces.
func (s *Store) DeletePerson(ctx context.Context, personID string) error {
	if s.WriteError != nil {
		return s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[personID]; !ok {
		return database.ErrNotFound
	}
	delete(s.people, personID)
	for _, f := range s.faces {
		if f.PersonID != nil && *f.PersonID == personID {
			f.PersonID = nil
			f.Verified = false
			f.RecognitionConfidence = nil
		}
	}
	return nil
}

// GetFace retrieves a face by id.
func (s *Store) GetFace(ctx context.Context, faceID string) (*database.FaceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.faces[faceID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneFace(f), nil
}

// GetPersonFaces returns all faces linked to a person.
func (s *Store) GetPersonFaces(ctx context.Context, personID string) ([]database.FaceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []database.FaceRecord
	for _, f := range s.faces {
		if f.PersonID != nil && *f.PersonID == personID {
			out = append(out, *cloneFace(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PhotoID != out[j].PhotoID {
			return out[i].PhotoID < out[j].PhotoID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountFaces returns the total number of stored faces.
func (s *Store) CountFaces(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.faces), nil
}

// AllVerifiedDescriptors returns one entry per verified face.
func (s *Store) AllVerifiedDescriptors(ctx context.Context) ([]database.IndexEntry, error) {
	if s.ScanError != nil {
		return nil, s.ScanError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []database.IndexEntry
	for _, f := range s.faces {
		if f.Verified && f.PersonID != nil {
			entries = append(entries, database.IndexEntry{
				PersonID:   *f.PersonID,
				Descriptor: append([]float32(nil), f.Descriptor...),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].PersonID < entries[j].PersonID })
	return entries, nil
}

// UnassignedFaces returns faces without a person, optionally scoped to photos.
func (s *Store) UnassignedFaces(ctx context.Context, photoIDs []string) ([]database.FaceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := make(map[string]struct{}, len(photoIDs))
	for _, id := range photoIDs {
		scope[id] = struct{}{}
	}

	var out []database.FaceRecord
	for _, f := range s.faces {
		if f.PersonID != nil {
			continue
		}
		if len(scope) > 0 {
			if _, ok := scope[f.PhotoID]; !ok {
				continue
			}
		}
		out = append(out, *cloneFace(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateFace stores a new detected face.
func (s *Store) CreateFace(ctx context.Context, face *database.FaceRecord) error {
	if s.WriteError != nil {
		return s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cf := cloneFace(face)
	if cf.CreatedAt.IsZero() {
		cf.CreatedAt = time.Now()
	}
	s.faces[cf.ID] = cf
	return nil
}

// SetAssignment links a face to a person.
func (s *Store) SetAssignment(ctx context.Context, faceID, personID string, verified bool, confidence float64) error {
	if s.WriteError != nil {
		return s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.faces[faceID]
	if !ok {
		return database.ErrNotFound
	}
	if _, ok := s.people[personID]; !ok {
		return database.ErrNotFound
	}
	if verified {
		confidence = 1.0
	}
	f.PersonID = &personID
	f.Verified = verified
	f.RecognitionConfidence = &confidence
	return nil
}

// ClearAssignment detaches a face. No-op when already unassigned.
func (s *Store) ClearAssignment(ctx context.Context, faceID string) error {
	if s.WriteError != nil {
		return s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.faces[faceID]
	if !ok {
		return database.ErrNotFound
	}
	f.PersonID = nil
	f.Verified = false
	f.RecognitionConfidence = nil
	return nil
}

// BatchSetVerified marks faces verified for the person, skipping faces not
// linked to them.
func (s *Store) BatchSetVerified(ctx context.Context, personID string, faceIDs []string) (int, error) {
	if s.WriteError != nil {
		return 0, s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[personID]; !ok {
		return 0, database.ErrNotFound
	}
	updated := 0
	one := 1.0
	for _, id := range faceIDs {
		f, ok := s.faces[id]
		if !ok || f.PersonID == nil || *f.PersonID != personID {
			continue
		}
		f.Verified = true
		f.RecognitionConfidence = &one
		updated++
	}
	return updated, nil
}

// Unlink detaches a face from a person if currently linked to them.
func (s *Store) Unlink(ctx context.Context, personID, faceID string) (int, error) {
	if s.WriteError != nil {
		return 0, s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.faces[faceID]
	if !ok {
		return 0, database.ErrNotFound
	}
	if f.PersonID == nil || *f.PersonID != personID {
		return 0, nil
	}
	f.PersonID = nil
	f.Verified = false
	f.RecognitionConfidence = nil
	return 1, nil
}

// PromoteCluster creates the person and verifies all faces atomically.
func (s *Store) PromoteCluster(ctx context.Context, person *database.Person, faceIDs []string) error {
	if s.WriteError != nil {
		return s.WriteError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var bad []string
	for _, id := range faceIDs {
		f, ok := s.faces[id]
		if !ok || f.PersonID != nil {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return &database.ValidationError{
			Reason:  "faces are unknown or already assigned",
			FaceIDs: bad,
		}
	}

	cp := clonePerson(person)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.people[cp.ID] = cp

	one := 1.0
	for _, id := range faceIDs {
		f := s.faces[id]
		pid := cp.ID
		f.PersonID = &pid
		f.Verified = true
		conf := one
		f.RecognitionConfidence = &conf
	}
	return nil
}
