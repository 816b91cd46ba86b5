// Package history tracks the most recently created dataset ids, newest
// first, capped at a fixed size. Eviction only removes an id from this
// view; the dataset itself stays retrievable from the store.
package history

import (
	"context"
	"sync"
)

// DefaultSize is the number of recent dataset ids kept when no explicit
// size is configured.
const DefaultSize = 5

// Ring is the in-process index: a mutex-guarded newest-first slice.
// Record is a single insert-and-evict critical section, so concurrent
// inserts can neither exceed the cap nor lose an id.
type Ring struct {
	mu   sync.Mutex
	size int
	ids  []int64
}

// NewRing returns an empty index capped at size. A non-positive size
// falls back to DefaultSize.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultSize
	}
	return &Ring{size: size, ids: make([]int64, 0, size)}
}

// Record inserts id at the front, evicting the oldest id past the cap.
func (r *Ring) Record(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = append([]int64{id}, r.ids...)
	if len(r.ids) > r.size {
		r.ids = r.ids[:r.size]
	}
	return nil
}

// Snapshot returns the current newest-first ordering.
func (r *Ring) Snapshot(_ context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]int64(nil), r.ids...), nil
}
