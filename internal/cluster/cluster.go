// Package cluster groups unassigned face descriptors into candidate
// identities. Two faces land in the same cluster when they are connected
// through a chain of pairwise-similar descriptors.
package cluster

import (
	"sort"

	"github.com/NickRemizov/Padel-Galleries/internal/database"
	"github.com/NickRemizov/Padel-Galleries/internal/faceindex"
)

// Face is one member of the clustering pool.
type Face struct {
	ID         string
	Descriptor []float32
}

// Cluster is a candidate identity: a connected component of mutually
// similar faces and the renormalized mean of their descriptors. Clusters
// are ephemeral; they only become durable through person promotion.
type Cluster struct {
	FaceIDs  []string  `json:"face_ids"`
	Centroid []float32 `json:"centroid"`
}

// Size returns the number of member faces.
func (c *Cluster) Size() int {
	return len(c.FaceIDs)
}

// Group partitions the pool into clusters using similarity-threshold
// connectivity: an edge exists between two faces iff their cosine
// similarity reaches the threshold, and clusters are the connected
// components of that graph. The partition is deterministic and independent
// of input order. Singletons are reported as one-member clusters.
func Group(faces []Face, threshold float64) ([]Cluster, error) {
	if len(faces) == 0 {
		return nil, nil
	}

	// Sort by id so component representatives, member order and centroid
	// accumulation do not depend on how the pool was produced.
	pool := make([]Face, len(faces))
	copy(pool, faces)
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })

	dim := len(pool[0].Descriptor)
	var bad []string
	for i := range pool {
		if len(pool[i].Descriptor) != dim || dim == 0 {
			bad = append(bad, pool[i].ID)
		}
	}
	if len(bad) > 0 {
		return nil, &database.ValidationError{
			Reason:  "descriptor dimension mismatch in clustering pool",
			FaceIDs: bad,
		}
	}

	// Union-find over all pairs. The edge test is symmetric, so the
	// resulting components are the same no matter the visitation order.
	parent := make([]int, len(pool))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri == rj {
			return
		}
		// Attach the larger root index under the smaller one.
		if ri < rj {
			parent[rj] = ri
		} else {
			parent[ri] = rj
		}
	}

	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			if faceindex.Cosine(pool[i].Descriptor, pool[j].Descriptor) >= threshold {
				union(i, j)
			}
		}
	}

	// Collect components. Roots appear in ascending id order because the
	// pool is sorted, so the output order is deterministic too.
	members := make(map[int][]int)
	var roots []int
	for i := range pool {
		r := find(i)
		if _, seen := members[r]; !seen {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}
	sort.Ints(roots)

	clusters := make([]Cluster, 0, len(roots))
	for _, r := range roots {
		ids := make([]string, 0, len(members[r]))
		sum := make([]float64, dim)
		for _, i := range members[r] {
			ids = append(ids, pool[i].ID)
			for d, x := range pool[i].Descriptor {
				sum[d] += float64(x)
			}
		}
		mean := make([]float32, dim)
		for d := range sum {
			mean[d] = float32(sum[d] / float64(len(members[r])))
		}
		clusters = append(clusters, Cluster{
			FaceIDs:  ids,
			Centroid: faceindex.Normalize(mean),
		})
	}

	return clusters, nil
}

// FromRecords converts stored face records into a clustering pool.
func FromRecords(records []database.FaceRecord) []Face {
	faces := make([]Face, 0, len(records))
	for i := range records {
		faces = append(faces, Face{
			ID:         records[i].ID,
			Descriptor: records[i].Descriptor,
		})
	}
	return faces
}
