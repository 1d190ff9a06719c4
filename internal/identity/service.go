// Package identity is the resolution engine the API layer talks to. It
// ties the face store, the identity index and the rebuild coordinator
// together: every mutation commits to the store first, then triggers
// exactly one index rebuild request.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/NickRemizov/Padel-Galleries/internal/cluster"
	"github.com/NickRemizov/Padel-Galleries/internal/config"
	"github.com/NickRemizov/Padel-Galleries/internal/database"
	"github.com/NickRemizov/Padel-Galleries/internal/faceindex"
)

// Service exposes the identity resolution operations.
type Service struct {
	store     database.Store
	index     *faceindex.Index
	rebuilder *faceindex.Rebuilder
	cfg       config.RecognitionConfig
}

// NewService wires the engine together. The index and rebuilder are
// long-lived process-wide handles owned by the caller.
func NewService(store database.Store, index *faceindex.Index, rebuilder *faceindex.Rebuilder, cfg config.RecognitionConfig) *Service {
	return &Service{
		store:     store,
		index:     index,
		rebuilder: rebuilder,
		cfg:       cfg,
	}
}

// MatchResult is a successful descriptor match.
type MatchResult struct {
	PersonID string  `json:"person_id"`
	Score    float64 `json:"score"`
}

// validateDescriptor rejects descriptors of the wrong dimension.
func (s *Service) validateDescriptor(descriptor []float32) error {
	if len(descriptor) != s.cfg.Dim {
		return &database.ValidationError{
			Reason: fmt.Sprintf("descriptor has dimension %d, want %d", len(descriptor), s.cfg.Dim),
		}
	}
	return nil
}

// Match queries the identity index for the person most similar to the
// descriptor. Returns nil without error when nothing reaches the match
// threshold. The lookup runs against an immutable snapshot and never
// blocks on rebuilds.
func (s *Service) Match(ctx context.Context, descriptor []float32) (*MatchResult, error) {
	if err := s.validateDescriptor(descriptor); err != nil {
		return nil, err
	}
	m, ok := s.index.Query(descriptor, s.cfg.MatchThreshold)
	if !ok {
		return nil, nil
	}
	return &MatchResult{PersonID: m.PersonID, Score: m.Score}, nil
}

// RecordAssignment links a face to a person. Unverified assignments come
// from the automatic matching pipeline and carry the match score as
// confidence; verified ones always get confidence 1.0.
func (s *Service) RecordAssignment(ctx context.Context, faceID, personID string, verified bool, confidence float64) error {
	if err := s.store.SetAssignment(ctx, faceID, personID, verified, confidence); err != nil {
		return err
	}
	s.rebuilder.RequestRebuild()
	return nil
}

// ClearAssignment detaches a face from any person (operator unlink by face).
func (s *Service) ClearAssignment(ctx context.Context, faceID string) error {
	if err := s.store.ClearAssignment(ctx, faceID); err != nil {
		return err
	}
	s.rebuilder.RequestRebuild()
	return nil
}

// BatchVerify marks the given faces of a person as operator-verified.
// Faces not linked to the person are skipped. The whole batch coalesces
// into a single rebuild trigger.
func (s *Service) BatchVerify(ctx context.Context, personID string, faceIDs []string) (int, error) {
	count, err := s.store.BatchSetVerified(ctx, personID, faceIDs)
	if err != nil {
		return 0, err
	}
	s.rebuilder.RequestRebuild()
	return count, nil
}

// Unlink detaches a single face from a person. Returns how many links were
// removed (0 or 1).
func (s *Service) Unlink(ctx context.Context, personID, faceID string) (int, error) {
	count, err := s.store.Unlink(ctx, personID, faceID)
	if err != nil {
		return 0, err
	}
	s.rebuilder.RequestRebuild()
	return count, nil
}

// DeletePerson removes a person. Their faces are detached, not deleted, so
// the descriptors stay available for re-clustering.
func (s *Service) DeletePerson(ctx context.Context, personID string) error {
	if err := s.store.DeletePerson(ctx, personID); err != nil {
		return err
	}
	s.rebuilder.RequestRebuild()
	return nil
}

// ClusterUnassigned groups unassigned faces into candidate identities.
// A nil photoIDs scope covers the whole corpus; threshold <= 0 falls back
// to the configured cluster threshold. Read-only; runs against a snapshot
// of the pool and may race with concurrent assignments, which is resolved
// by the commit-time validation in CreatePersonFromCluster.
func (s *Service) ClusterUnassigned(ctx context.Context, photoIDs []string, threshold float64) ([]cluster.Cluster, error) {
	if threshold <= 0 {
		threshold = s.cfg.ClusterThreshold
	}
	faces, err := s.store.UnassignedFaces(ctx, photoIDs)
	if err != nil {
		return nil, fmt.Errorf("loading unassigned faces: %w", err)
	}
	return cluster.Group(cluster.FromRecords(faces), threshold)
}

// CreatePersonFromCluster promotes a cluster into a new verified person.
// Every face must still be unassigned at commit time; otherwise nothing is
// applied and the validation error lists the offending ids.
func (s *Service) CreatePersonFromCluster(ctx context.Context, name string, faceIDs []string) (*database.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &database.ValidationError{Reason: "person name is required"}
	}
	if len(faceIDs) == 0 {
		return nil, &database.ValidationError{Reason: "cluster has no faces"}
	}

	ids := dedupe(faceIDs)
	p := &database.Person{
		ID:          uuid.NewString(),
		DisplayName: name,
	}
	if err := s.store.PromoteCluster(ctx, p, ids); err != nil {
		return nil, err
	}
	s.rebuilder.RequestRebuild()
	return p, nil
}

// dedupe drops duplicate face ids while keeping order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// GetPerson returns a person by id.
func (s *Service) GetPerson(ctx context.Context, personID string) (*database.Person, error) {
	return s.store.GetPerson(ctx, personID)
}

// ListPeople returns all people, optionally with face/photo stats.
func (s *Service) ListPeople(ctx context.Context, includeStats bool) ([]database.Person, error) {
	return s.store.ListPeople(ctx, includeStats)
}

// CreatePerson creates a person directly (without faces). Duplicate display
// names are rejected after normalization, so "Jan Novák" and "jan-novak"
// cannot coexist.
func (s *Service) CreatePerson(ctx context.Context, name, avatarURL string) (*database.Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &database.ValidationError{Reason: "person name is required"}
	}

	existing, err := s.store.ListPeople(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}
	normalized := NormalizePersonName(name)
	for i := range existing {
		if NormalizePersonName(existing[i].DisplayName) == normalized {
			return nil, &database.ValidationError{
				Reason: fmt.Sprintf("person %q already exists", existing[i].DisplayName),
			}
		}
	}

	p := &database.Person{
		ID:          uuid.NewString(),
		DisplayName: name,
		AvatarURL:   avatarURL,
	}
	if err := s.store.CreatePerson(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePerson updates display metadata. No index rebuild is needed: the
// index keys on person ids, which never change.
func (s *Service) UpdatePerson(ctx context.Context, personID, name, avatarURL string) (*database.Person, error) {
	p, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		p.DisplayName = name
	}
	if avatarURL != "" {
		p.AvatarURL = avatarURL
	}
	if err := s.store.UpdatePerson(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetAvatar updates just the avatar URL.
func (s *Service) SetAvatar(ctx context.Context, personID, avatarURL string) (*database.Person, error) {
	return s.UpdatePerson(ctx, personID, "", avatarURL)
}

// PersonFaces returns all faces linked to a person for the admin UI.
func (s *Service) PersonFaces(ctx context.Context, personID string) ([]database.FaceRecord, error) {
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	return s.store.GetPersonFaces(ctx, personID)
}
