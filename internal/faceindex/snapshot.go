// Package faceindex maintains the in-memory identity index: a searchable
// set of verified face descriptors keyed by person, rebuilt from the
// database and swapped atomically so readers never see partial state.
package faceindex

import (
	"fmt"

	"github.com/coder/hnsw"
	"github.com/NickRemizov/Padel-Galleries/internal/database"
)

// HNSW index parameters for 512-dim face descriptors
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWMinEntries is the snapshot size at which the HNSW graph replaces
	// the exact flat scan. Below this, brute force is both exact and fast.
	HNSWMinEntries = 2000

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// so the best entry per person survives approximate search. This is the
	// recall safety margin; raise it if exact matches start getting missed.
	HNSWSearchMultiplier = 3

	// HNSWMinSearchCandidates is the minimum candidate pool for a search.
	HNSWMinSearchCandidates = 100
)

// Match is a successful index lookup.
type Match struct {
	PersonID string
	Score    float64 // cosine similarity, higher is better
}

// Snapshot is an immutable, fully-built identity index. Queries against a
// snapshot are safe from any goroutine; a snapshot is never mutated after
// BuildSnapshot returns.
type Snapshot struct {
	dim     int
	entries []database.IndexEntry
	graph   *hnsw.Graph[int] // node key = entries index; nil for flat scan
}

// BuildSnapshot constructs a snapshot from verified descriptor entries.
// All descriptors must share the given dimension. Large entry sets get an
// HNSW graph; small ones use an exact flat scan.
func BuildSnapshot(entries []database.IndexEntry, dim int) (*Snapshot, error) {
	copied := make([]database.IndexEntry, 0, len(entries))
	for i := range entries {
		if len(entries[i].Descriptor) != dim {
			return nil, fmt.Errorf("descriptor for person %s has dimension %d, want %d",
				entries[i].PersonID, len(entries[i].Descriptor), dim)
		}
		copied = append(copied, entries[i])
	}

	s := &Snapshot{dim: dim, entries: copied}

	if len(copied) >= HNSWMinEntries {
		g := hnsw.NewGraph[int]()
		g.M = HNSWMaxNeighbors
		g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
		g.Distance = hnsw.CosineDistance

		for i := range copied {
			g.Add(hnsw.MakeNode(i, copied[i].Descriptor))
		}
		s.graph = g
	}

	return s, nil
}

// Len returns the number of indexed descriptors.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Dim returns the descriptor dimension the snapshot was built for.
func (s *Snapshot) Dim() int {
	return s.dim
}

// Query returns the person whose verified descriptors are most similar to
// the query descriptor, if the best similarity reaches the threshold.
// Ties between persons at the same score go to the smallest person id.
func (s *Snapshot) Query(descriptor []float32, threshold float64) (Match, bool) {
	if len(descriptor) != s.dim || len(s.entries) == 0 {
		return Match{}, false
	}

	if s.graph == nil {
		return s.queryFlat(descriptor, threshold)
	}
	return s.queryHNSW(descriptor, threshold)
}

// queryFlat scans every entry. Exact.
func (s *Snapshot) queryFlat(descriptor []float32, threshold float64) (Match, bool) {
	best := Match{Score: -2}
	for i := range s.entries {
		s.consider(&best, i, Cosine(descriptor, s.entries[i].Descriptor))
	}
	if best.PersonID == "" || best.Score < threshold {
		return Match{}, false
	}
	return best, true
}

// queryHNSW searches the graph with an over-fetched candidate pool, then
// re-scores candidates exactly so the returned score and the person-id
// tie-break match the flat scan.
func (s *Snapshot) queryHNSW(descriptor []float32, threshold float64) (Match, bool) {
	searchK := len(s.entries)/HNSWMinEntries + HNSWSearchMultiplier*HNSWMaxNeighbors
	searchK = max(searchK, HNSWMinSearchCandidates)

	neighbors := s.graph.Search(descriptor, searchK)

	best := Match{Score: -2}
	for _, n := range neighbors {
		if n.Key < 0 || n.Key >= len(s.entries) {
			continue
		}
		s.consider(&best, n.Key, Cosine(descriptor, s.entries[n.Key].Descriptor))
	}
	if best.PersonID == "" || best.Score < threshold {
		return Match{}, false
	}
	return best, true
}

// consider updates best with entry i at the given score, breaking exact
// ties by smallest person id.
func (s *Snapshot) consider(best *Match, i int, score float64) {
	personID := s.entries[i].PersonID
	if score > best.Score || (score == best.Score && (best.PersonID == "" || personID < best.PersonID)) {
		best.PersonID = personID
		best.Score = score
	}
}
