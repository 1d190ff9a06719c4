package faceindex

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/NickRemizov/Padel-Galleries/internal/database"
)

// DescriptorSource feeds index rebuilds. Each call re-scans current state,
// so a rebuild is always a full, idempotent resync of the index with the
// verified faces in the store.
type DescriptorSource interface {
	AllVerifiedDescriptors(ctx context.Context) ([]database.IndexEntry, error)
}

// Rebuilder keeps the identity index consistent with the store without
// redundant work. RequestRebuild is the only entry point: if no rebuild is
// running one starts immediately; triggers arriving while one runs collapse
// into a single follow-up rebuild (dirty flag). At most one rebuild
// computation runs at a time.
type Rebuilder struct {
	source DescriptorSource
	index  *Index
	dim    int

	mu      sync.Mutex
	idle    *sync.Cond
	running bool
	dirty   bool
	closed  bool

	rebuilds atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRebuilder creates a rebuilder for the given index.
func NewRebuilder(source DescriptorSource, index *Index, dim int) *Rebuilder {
	r := &Rebuilder{
		source: source,
		index:  index,
		dim:    dim,
	}
	r.idle = sync.NewCond(&r.mu)
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// RequestRebuild schedules an index rebuild. Never blocks. Every call is
// eventually followed by a rebuild reflecting at least the store state as
// of the call; overlapping calls coalesce.
func (r *Rebuilder) RequestRebuild() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if r.running {
		r.dirty = true
		return
	}
	r.running = true
	go r.run()
}

// run executes rebuilds until the dirty flag stays clear.
func (r *Rebuilder) run() {
	for {
		err := r.rebuild(r.ctx)

		r.mu.Lock()
		if err != nil {
			// The previous snapshot stays active (stale but valid).
			// Mark dirty so the next trigger retries; do not rerun
			// immediately, a broken store would spin.
			log.Printf("face index rebuild failed, serving stale index: %v", err)
			r.dirty = true
			r.running = false
			r.idle.Broadcast()
			r.mu.Unlock()
			return
		}
		if r.dirty && !r.closed {
			r.dirty = false
			r.mu.Unlock()
			continue
		}
		r.running = false
		r.idle.Broadcast()
		r.mu.Unlock()
		return
	}
}

// rebuild scans the store, builds a fresh snapshot and swaps it in.
func (r *Rebuilder) rebuild(ctx context.Context) error {
	r.rebuilds.Add(1)

	entries, err := r.source.AllVerifiedDescriptors(ctx)
	if err != nil {
		return fmt.Errorf("scanning verified descriptors: %w", err)
	}

	snapshot, err := BuildSnapshot(entries, r.dim)
	if err != nil {
		return fmt.Errorf("building index snapshot: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rebuild interrupted: %w", err)
	}

	r.index.Replace(snapshot)
	return nil
}

// Rebuilds returns how many rebuild executions have started.
func (r *Rebuilder) Rebuilds() int64 {
	return r.rebuilds.Load()
}

// WaitIdle blocks until no rebuild is running. Intended for tests and
// shutdown paths.
func (r *Rebuilder) WaitIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.running {
		r.idle.Wait()
	}
}

// Dirty reports whether a follow-up rebuild is pending or a failed rebuild
// awaits retry.
func (r *Rebuilder) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// Close interrupts any in-flight rebuild and stops accepting triggers.
// An interrupted rebuild leaves the dirty flag set for retry after restart.
func (r *Rebuilder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.WaitIdle()
}
