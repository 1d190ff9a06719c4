//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/NickRemizov/Padel-Galleries/internal/config"
	"github.com/NickRemizov/Padel-Galleries/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

// testDescriptor builds a 512-dim descriptor matching the migration schema.
func testDescriptor(hot int) []float32 {
	v := make([]float32, 512)
	v[hot] = 1
	return v
}

func createFace(t *testing.T, store *Store, id string, hot int) {
	t.Helper()
	err := store.CreateFace(context.Background(), &database.FaceRecord{
		ID:         id,
		PhotoID:    "photo-" + id,
		Descriptor: testDescriptor(hot),
		BBox:       []float64{10, 20, 110, 120},
		DetScore:   0.97,
	})
	if err != nil {
		t.Fatalf("Failed to create face %s: %v", id, err)
	}
}

func createPerson(t *testing.T, store *Store, name string) *database.Person {
	t.Helper()
	p := &database.Person{ID: uuid.NewString(), DisplayName: name}
	if err := store.CreatePerson(context.Background(), p); err != nil {
		t.Fatalf("Failed to create person %s: %v", name, err)
	}
	return p
}

func TestStore_People(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		p := createPerson(t, store, "Alice")

		got, err := store.GetPerson(ctx, p.ID)
		if err != nil {
			t.Fatalf("Failed to get person: %v", err)
		}
		if got.DisplayName != "Alice" {
			t.Errorf("Expected display name 'Alice', got '%s'", got.DisplayName)
		}
		if got.CreatedAt.IsZero() {
			t.Error("Expected created_at to be set")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.GetPerson(ctx, uuid.NewString())
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		p := createPerson(t, store, "Bob")
		p.DisplayName = "Robert"
		p.AvatarURL = "http://example.com/r.jpg"

		if err := store.UpdatePerson(ctx, p); err != nil {
			t.Fatalf("Failed to update person: %v", err)
		}

		got, err := store.GetPerson(ctx, p.ID)
		if err != nil {
			t.Fatalf("Failed to get person: %v", err)
		}
		if got.DisplayName != "Robert" || got.AvatarURL != "http://example.com/r.jpg" {
			t.Errorf("Update not applied: %+v", got)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := store.UpdatePerson(ctx, &database.Person{ID: uuid.NewString(), DisplayName: "Ghost"})
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteDetachesFaces", func(t *testing.T) {
		p := createPerson(t, store, "Carol")
		createFace(t, store, "carol-face", 0)
		if err := store.SetAssignment(ctx, "carol-face", p.ID, true, 0); err != nil {
			t.Fatalf("Failed to assign face: %v", err)
		}

		if err := store.DeletePerson(ctx, p.ID); err != nil {
			t.Fatalf("Failed to delete person: %v", err)
		}

		face, err := store.GetFace(ctx, "carol-face")
		if err != nil {
			t.Fatalf("Face should survive person deletion: %v", err)
		}
		if face.PersonID != nil || face.Verified {
			t.Errorf("Face not detached: %+v", face)
		}
	})
}

func TestStore_Faces(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		createFace(t, store, "f1", 0)

		got, err := store.GetFace(ctx, "f1")
		if err != nil {
			t.Fatalf("Failed to get face: %v", err)
		}
		if len(got.Descriptor) != 512 {
			t.Errorf("Expected 512-dim descriptor, got %d", len(got.Descriptor))
		}
		if got.Descriptor[0] != 1 {
			t.Error("Descriptor not round-tripped through pgvector")
		}
		if len(got.BBox) != 4 {
			t.Errorf("Expected 4 bbox values, got %d", len(got.BBox))
		}
		if got.PersonID != nil {
			t.Error("New face should be unassigned")
		}
	})

	t.Run("VerifiedAssignmentForcesConfidence", func(t *testing.T) {
		p := createPerson(t, store, "Dora")
		createFace(t, store, "f2", 1)

		if err := store.SetAssignment(ctx, "f2", p.ID, true, 0.4); err != nil {
			t.Fatalf("Failed to assign face: %v", err)
		}

		got, err := store.GetFace(ctx, "f2")
		if err != nil {
			t.Fatalf("Failed to get face: %v", err)
		}
		if got.RecognitionConfidence == nil || *got.RecognitionConfidence != 1.0 {
			t.Errorf("Expected confidence 1.0, got %v", got.RecognitionConfidence)
		}
	})

	t.Run("AssignToMissingPerson", func(t *testing.T) {
		createFace(t, store, "f3", 2)
		err := store.SetAssignment(ctx, "f3", uuid.NewString(), false, 0.8)
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AllVerifiedDescriptors", func(t *testing.T) {
		p := createPerson(t, store, "Eve")
		createFace(t, store, "f4", 3)
		createFace(t, store, "f5", 4)
		if err := store.SetAssignment(ctx, "f4", p.ID, true, 0); err != nil {
			t.Fatal(err)
		}
		if err := store.SetAssignment(ctx, "f5", p.ID, false, 0.7); err != nil {
			t.Fatal(err)
		}

		entries, err := store.AllVerifiedDescriptors(ctx)
		if err != nil {
			t.Fatalf("Failed to scan descriptors: %v", err)
		}
		for _, e := range entries {
			if e.PersonID == p.ID && e.Descriptor[4] == 1 {
				t.Error("Unverified descriptor leaked into index scan")
			}
		}
	})

	t.Run("UnassignedFacesScope", func(t *testing.T) {
		createFace(t, store, "f6", 5)
		createFace(t, store, "f7", 6)

		faces, err := store.UnassignedFaces(ctx, []string{"photo-f6"})
		if err != nil {
			t.Fatalf("Failed to list unassigned faces: %v", err)
		}
		if len(faces) != 1 || faces[0].ID != "f6" {
			t.Errorf("Expected only f6 in scope, got %+v", faces)
		}
	})

	t.Run("Unlink", func(t *testing.T) {
		p := createPerson(t, store, "Frank")
		createFace(t, store, "f8", 7)
		if err := store.SetAssignment(ctx, "f8", p.ID, true, 0); err != nil {
			t.Fatal(err)
		}

		n, err := store.Unlink(ctx, p.ID, "f8")
		if err != nil {
			t.Fatalf("Failed to unlink: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 unlink, got %d", n)
		}

		// Second unlink is a no-op.
		n, err = store.Unlink(ctx, p.ID, "f8")
		if err != nil {
			t.Fatalf("Failed to unlink: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected 0 unlinks, got %d", n)
		}
	})
}

func TestStore_PromoteCluster(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	t.Run("Success", func(t *testing.T) {
		createFace(t, store, "c1", 0)
		createFace(t, store, "c2", 1)

		p := &database.Person{ID: uuid.NewString(), DisplayName: "Grace"}
		if err := store.PromoteCluster(ctx, p, []string{"c1", "c2"}); err != nil {
			t.Fatalf("Failed to promote cluster: %v", err)
		}

		faces, err := store.GetPersonFaces(ctx, p.ID)
		if err != nil {
			t.Fatalf("Failed to list person faces: %v", err)
		}
		if len(faces) != 2 {
			t.Fatalf("Expected 2 faces, got %d", len(faces))
		}
		for _, f := range faces {
			if !f.Verified {
				t.Errorf("Face %s not verified after promotion", f.ID)
			}
		}
	})

	t.Run("AllOrNothing", func(t *testing.T) {
		taken := createPerson(t, store, "Henry")
		createFace(t, store, "c3", 2)
		createFace(t, store, "c4", 3)
		if err := store.SetAssignment(ctx, "c4", taken.ID, true, 0); err != nil {
			t.Fatal(err)
		}

		p := &database.Person{ID: uuid.NewString(), DisplayName: "Iris"}
		err := store.PromoteCluster(ctx, p, []string{"c3", "c4"})
		if !database.IsValidation(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}

		// Nothing was applied.
		if _, err := store.GetPerson(ctx, p.ID); !errors.Is(err, database.ErrNotFound) {
			t.Error("Person should not exist after failed promotion")
		}
		face, err := store.GetFace(ctx, "c3")
		if err != nil {
			t.Fatal(err)
		}
		if face.PersonID != nil {
			t.Error("c3 should still be unassigned after failed promotion")
		}
	})
}
