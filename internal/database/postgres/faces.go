package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/NickRemizov/Padel-Galleries/internal/database"
)

const faceColumns = `id, photo_id, descriptor, bbox, det_score, person_id, verified, recognition_confidence, created_at`

// scanFace scans one photo_faces row.
func scanFace(rows *sql.Rows) (database.FaceRecord, error) {
	var f database.FaceRecord
	var descriptor pgvector.Vector
	var bbox pq.Float64Array
	var personID sql.NullString
	var confidence sql.NullFloat64

	err := rows.Scan(&f.ID, &f.PhotoID, &descriptor, &bbox, &f.DetScore,
		&personID, &f.Verified, &confidence, &f.CreatedAt)
	if err != nil {
		return f, fmt.Errorf("scan face: %w", err)
	}

	f.Descriptor = descriptor.Slice()
	f.BBox = bbox
	if personID.Valid {
		f.PersonID = &personID.String
	}
	if confidence.Valid {
		f.RecognitionConfidence = &confidence.Float64
	}
	return f, nil
}

func scanFaces(rows *sql.Rows) ([]database.FaceRecord, error) {
	var faces []database.FaceRecord
	for rows.Next() {
		f, err := scanFace(rows)
		if err != nil {
			return nil, err
		}
		faces = append(faces, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// GetFace retrieves a face by id.
func (s *Store) GetFace(ctx context.Context, faceID string) (*database.FaceRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+faceColumns+" FROM photo_faces WHERE id = $1", faceID)
	if err != nil {
		return nil, fmt.Errorf("query face: %w", err)
	}
	defer rows.Close()

	faces, err := scanFaces(rows)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, database.ErrNotFound
	}
	return &faces[0], nil
}

// GetPersonFaces returns all faces linked to a person.
func (s *Store) GetPersonFaces(ctx context.Context, personID string) ([]database.FaceRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+faceColumns+" FROM photo_faces WHERE person_id = $1 ORDER BY photo_id, id", personID)
	if err != nil {
		return nil, fmt.Errorf("query person faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// CountFaces returns the total number of stored faces.
func (s *Store) CountFaces(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM photo_faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// AllVerifiedDescriptors returns one (person, descriptor) entry per
// verified face. Each call re-scans current state; this is the sole feed
// for identity index rebuilds.
func (s *Store) AllVerifiedDescriptors(ctx context.Context) ([]database.IndexEntry, error) {
	query := `
		SELECT person_id, descriptor
		FROM photo_faces
		WHERE verified = TRUE AND person_id IS NOT NULL
		ORDER BY person_id, id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query verified descriptors: %w", err)
	}
	defer rows.Close()

	var entries []database.IndexEntry
	for rows.Next() {
		var e database.IndexEntry
		var descriptor pgvector.Vector
		if err := rows.Scan(&e.PersonID, &descriptor); err != nil {
			return nil, fmt.Errorf("scan verified descriptor: %w", err)
		}
		e.Descriptor = descriptor.Slice()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verified descriptors: %w", err)
	}
	return entries, nil
}

// UnassignedFaces returns faces without a person, optionally scoped to the
// given photos.
func (s *Store) UnassignedFaces(ctx context.Context, photoIDs []string) ([]database.FaceRecord, error) {
	query := "SELECT " + faceColumns + " FROM photo_faces WHERE person_id IS NULL"
	args := []any{}
	if len(photoIDs) > 0 {
		query += " AND photo_id = ANY($1)"
		args = append(args, pq.Array(photoIDs))
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unassigned faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// CreateFace stores a new detected face.
func (s *Store) CreateFace(ctx context.Context, face *database.FaceRecord) error {
	query := `
		INSERT INTO photo_faces (id, photo_id, descriptor, bbox, det_score, person_id, verified, recognition_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	var personID any
	if face.PersonID != nil {
		personID = *face.PersonID
	}
	var confidence any
	if face.RecognitionConfidence != nil {
		confidence = *face.RecognitionConfidence
	}

	err := s.pool.QueryRow(ctx, query,
		face.ID, face.PhotoID, pgvector.NewVector(face.Descriptor), pq.Array(face.BBox),
		face.DetScore, personID, face.Verified, confidence,
	).Scan(&face.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert face: %w", err)
	}
	return nil
}

// SetAssignment links a face to a person. Verified assignments always get
// confidence 1.0.
func (s *Store) SetAssignment(ctx context.Context, faceID, personID string, verified bool, confidence float64) error {
	if verified {
		confidence = 1.0
	}

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM people WHERE id = $1)", personID).Scan(&exists); err != nil {
		return fmt.Errorf("check person exists: %w", err)
	}
	if !exists {
		return database.ErrNotFound
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE photo_faces
		SET person_id = $2, verified = $3, recognition_confidence = $4
		WHERE id = $1
	`, faceID, personID, verified, confidence)
	if err != nil {
		return fmt.Errorf("set assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set assignment rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment: %w", err)
	}
	return nil
}

// ClearAssignment detaches a face. Clearing an unassigned face is a no-op.
func (s *Store) ClearAssignment(ctx context.Context, faceID string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE photo_faces
		SET person_id = NULL, verified = FALSE, recognition_confidence = NULL
		WHERE id = $1
	`, faceID)
	if err != nil {
		return fmt.Errorf("clear assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear assignment rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// BatchSetVerified marks the given faces verified for the person in a
// single statement. Faces not currently linked to the person are skipped.
func (s *Store) BatchSetVerified(ctx context.Context, personID string, faceIDs []string) (int, error) {
	if len(faceIDs) == 0 {
		return 0, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM people WHERE id = $1)", personID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check person exists: %w", err)
	}
	if !exists {
		return 0, database.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE photo_faces
		SET verified = TRUE, recognition_confidence = 1.0
		WHERE person_id = $1 AND id = ANY($2)
	`, personID, pq.Array(faceIDs))
	if err != nil {
		return 0, fmt.Errorf("batch verify: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("batch verify rows affected: %w", err)
	}
	return int(affected), nil
}

// Unlink detaches a face from a person if currently linked to them.
func (s *Store) Unlink(ctx context.Context, personID, faceID string) (int, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM photo_faces WHERE id = $1)", faceID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check face exists: %w", err)
	}
	if !exists {
		return 0, database.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE photo_faces
		SET person_id = NULL, verified = FALSE, recognition_confidence = NULL
		WHERE id = $2 AND person_id = $1
	`, personID, faceID)
	if err != nil {
		return 0, fmt.Errorf("unlink face: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("unlink rows affected: %w", err)
	}
	return int(affected), nil
}

// PromoteCluster creates the person and assigns + verifies all faces in
// one transaction. Faces are locked and re-validated at commit time, which
// is the backstop against clustering racing a concurrent assignment.
func (s *Store) PromoteCluster(ctx context.Context, person *database.Person, faceIDs []string) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, person_id
		FROM photo_faces
		WHERE id = ANY($1)
		FOR UPDATE
	`, pq.Array(faceIDs))
	if err != nil {
		return fmt.Errorf("lock cluster faces: %w", err)
	}

	assigned := make(map[string]bool, len(faceIDs))
	for rows.Next() {
		var id string
		var personID sql.NullString
		if err := rows.Scan(&id, &personID); err != nil {
			rows.Close()
			return fmt.Errorf("scan cluster face: %w", err)
		}
		assigned[id] = personID.Valid
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate cluster faces: %w", err)
	}
	rows.Close()

	var bad []string
	for _, id := range faceIDs {
		isAssigned, found := assigned[id]
		if !found || isAssigned {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return &database.ValidationError{
			Reason:  "faces are unknown or already assigned",
			FaceIDs: bad,
		}
	}

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO people (id, display_name, avatar_url)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, person.ID, person.DisplayName, person.AvatarURL).Scan(&person.CreatedAt); err != nil {
		return fmt.Errorf("insert person: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE photo_faces
		SET person_id = $1, verified = TRUE, recognition_confidence = 1.0
		WHERE id = ANY($2)
	`, person.ID, pq.Array(faceIDs)); err != nil {
		return fmt.Errorf("assign cluster faces: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cluster promotion: %w", err)
	}
	return nil
}

var _ database.Store = (*Store)(nil)
