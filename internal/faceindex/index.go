package faceindex

import (
	"sync/atomic"
)

// Index holds the currently active snapshot. Readers grab the snapshot with
// Current and query it without locking; Replace swaps in a fully-built
// snapshot atomically, so an in-flight query keeps operating against the
// old data and no reader ever observes a half-built index.
type Index struct {
	current atomic.Pointer[Snapshot]
}

// NewIndex creates an index with an empty snapshot of the given dimension.
func NewIndex(dim int) *Index {
	idx := &Index{}
	empty, _ := BuildSnapshot(nil, dim)
	idx.current.Store(empty)
	return idx
}

// Current returns the active snapshot.
func (idx *Index) Current() *Snapshot {
	return idx.current.Load()
}

// Replace atomically swaps in a new snapshot.
func (idx *Index) Replace(snapshot *Snapshot) {
	idx.current.Store(snapshot)
}

// Query runs a lookup against the active snapshot.
func (idx *Index) Query(descriptor []float32, threshold float64) (Match, bool) {
	return idx.Current().Query(descriptor, threshold)
}

// Len returns the size of the active snapshot.
func (idx *Index) Len() int {
	return idx.Current().Len()
}
