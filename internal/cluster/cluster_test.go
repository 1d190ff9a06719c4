package cluster

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/NickRemizov/Padel-Galleries/internal/database"
	"github.com/NickRemizov/Padel-Galleries/internal/faceindex"
)

func TestGroup_ThresholdConnectivity(t *testing.T) {
	// A and B are near-duplicates, C points elsewhere.
	faces := []Face{
		{ID: "a", Descriptor: faceindex.Normalize([]float32{1, 0.1, 0})},
		{ID: "b", Descriptor: faceindex.Normalize([]float32{1, 0, 0.1})},
		{ID: "c", Descriptor: faceindex.Normalize([]float32{0, 1, 0})},
	}

	clusters, err := Group(faces, 0.6)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}

	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if !reflect.DeepEqual(clusters[0].FaceIDs, []string{"a", "b"}) {
		t.Errorf("first cluster = %v, want [a b]", clusters[0].FaceIDs)
	}
	if !reflect.DeepEqual(clusters[1].FaceIDs, []string{"c"}) {
		t.Errorf("second cluster = %v, want [c]", clusters[1].FaceIDs)
	}
}

func TestGroup_ChainConnectivity(t *testing.T) {
	// A~B and B~C but A and C alone are below the threshold. They still
	// share a cluster through B.
	a := faceindex.Normalize([]float32{1, 0, 0})
	b := faceindex.Normalize([]float32{1, 1, 0})
	c := faceindex.Normalize([]float32{0, 1, 0})

	if faceindex.Cosine(a, c) >= 0.6 {
		t.Fatal("test setup broken: a and c should not be directly similar")
	}

	clusters, err := Group([]Face{
		{ID: "a", Descriptor: a},
		{ID: "b", Descriptor: b},
		{ID: "c", Descriptor: c},
	}, 0.6)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}

	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if !reflect.DeepEqual(clusters[0].FaceIDs, []string{"a", "b", "c"}) {
		t.Errorf("cluster = %v, want [a b c]", clusters[0].FaceIDs)
	}
}

func TestGroup_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	faces := make([]Face, 0, 20)
	for i := 0; i < 20; i++ {
		v := make([]float32, 8)
		for d := range v {
			v[d] = float32(rng.NormFloat64())
		}
		faces = append(faces, Face{
			ID:         string(rune('a' + i)),
			Descriptor: faceindex.Normalize(v),
		})
	}

	want, err := Group(faces, 0.4)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}

	for trial := 0; trial < 5; trial++ {
		shuffled := make([]Face, len(faces))
		copy(shuffled, faces)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, err := Group(shuffled, 0.4)
		if err != nil {
			t.Fatalf("Group failed: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("trial %d: clustering depends on input order", trial)
		}
	}
}

func TestGroup_CentroidIsUnitLength(t *testing.T) {
	clusters, err := Group([]Face{
		{ID: "a", Descriptor: faceindex.Normalize([]float32{1, 0.1, 0})},
		{ID: "b", Descriptor: faceindex.Normalize([]float32{1, 0, 0.1})},
	}, 0.6)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}

	var norm float64
	for _, x := range clusters[0].Centroid {
		norm += float64(x) * float64(x)
	}
	if norm < 0.999 || norm > 1.001 {
		t.Errorf("centroid squared norm = %f, want 1", norm)
	}
}

func TestGroup_EmptyPool(t *testing.T) {
	clusters, err := Group(nil, 0.6)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	if clusters != nil {
		t.Errorf("got %v, want nil for empty pool", clusters)
	}
}

func TestGroup_DimensionMismatch(t *testing.T) {
	_, err := Group([]Face{
		{ID: "a", Descriptor: []float32{1, 0, 0}},
		{ID: "b", Descriptor: []float32{1, 0}},
	}, 0.6)

	var verr *database.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want validation error", err)
	}
	if !reflect.DeepEqual(verr.FaceIDs, []string{"b"}) {
		t.Errorf("offending faces = %v, want [b]", verr.FaceIDs)
	}
}

func TestFromRecords(t *testing.T) {
	records := []database.FaceRecord{
		{ID: "f1", Descriptor: []float32{1, 0}},
		{ID: "f2", Descriptor: []float32{0, 1}},
	}

	faces := FromRecords(records)
	if len(faces) != 2 {
		t.Fatalf("got %d faces, want 2", len(faces))
	}
	if faces[0].ID != "f1" || faces[1].ID != "f2" {
		t.Errorf("face ids = %s, %s, want f1, f2", faces[0].ID, faces[1].ID)
	}
}
