package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NickRemizov/Padel-Galleries/internal/database"
)

// Store provides PostgreSQL-backed people and face storage.
type Store struct {
	pool *Pool
}

// NewStore creates a store on top of an existing pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// GetPerson retrieves a person by id.
func (s *Store) GetPerson(ctx context.Context, personID string) (*database.Person, error) {
	query := `
		SELECT id, display_name, avatar_url, created_at
		FROM people
		WHERE id = $1
	`

	var p database.Person
	err := s.pool.QueryRow(ctx, query, personID).Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query person: %w", err)
	}
	return &p, nil
}

// ListPeople returns all people ordered by display name.
func (s *Store) ListPeople(ctx context.Context, includeStats bool) ([]database.Person, error) {
	query := `
		SELECT id, display_name, avatar_url, created_at, 0, 0
		FROM people
		ORDER BY display_name, id
	`
	if includeStats {
		query = `
			SELECT p.id, p.display_name, p.avatar_url, p.created_at,
			       COUNT(f.id), COUNT(DISTINCT f.photo_id)
			FROM people p
			LEFT JOIN photo_faces f ON f.person_id = p.id
			GROUP BY p.id, p.display_name, p.avatar_url, p.created_at
			ORDER BY p.display_name, p.id
		`
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var people []database.Person
	for rows.Next() {
		var p database.Person
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.CreatedAt, &p.FaceCount, &p.PhotoCount); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return people, nil
}

// CreatePerson stores a new person.
func (s *Store) CreatePerson(ctx context.Context, person *database.Person) error {
	query := `
		INSERT INTO people (id, display_name, avatar_url)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := s.pool.QueryRow(ctx, query, person.ID, person.DisplayName, person.AvatarURL).Scan(&person.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

// UpdatePerson updates display name and avatar.
func (s *Store) UpdatePerson(ctx context.Context, person *database.Person) error {
	result, err := s.pool.Exec(ctx,
		"UPDATE people SET display_name = $2, avatar_url = $3 WHERE id = $1",
		person.ID, person.DisplayName, person.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update person rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeletePerson removes a person and detaches their faces in one
// transaction. Descriptors are kept so the faces return to the unassigned
// pool for re-clustering.
func (s *Store) DeletePerson(ctx context.Context, personID string) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE photo_faces
		SET person_id = NULL, verified = FALSE, recognition_confidence = NULL
		WHERE person_id = $1
	`, personID); err != nil {
		return fmt.Errorf("detach faces: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM people WHERE id = $1", personID)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete person rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit person delete: %w", err)
	}
	return nil
}
