// Package registry implements the stable map registry (C2): monotonic-ID
// append-only maps with archive spillover, the single-writer equivalent of
// the teacher's storetypes.KVStore-backed keeper maps. Tokens, pools,
// transfers, requests, claims and settlement jobs are each stored in one
// of these.
package registry

import (
	"sort"
	"sync"

	"cosmossdk.io/errors"
)

// ErrNotFound is returned by Get/Update when an id is absent from both the
// active and archive maps.
var ErrNotFound = errors.Register("registry", 1, "entity not found")

// Registry is a monotonic-ID map with an active map and an archive map.
// Insert always assigns into the active map; Archive moves entries with
// id <= cursor into the archive map. Safe for concurrent use.
type Registry[T any] struct {
	mu      sync.RWMutex
	counter uint64
	active  map[uint64]T
	archive map[uint64]T
}

// New returns an empty Registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		active:  make(map[uint64]T),
		archive: make(map[uint64]T),
	}
}

// Insert assigns id = currentCounter+1, stores the entity, and returns the
// new id. IDs are never reused, even across archive spillover.
func (r *Registry[T]) Insert(build func(id uint64) T) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	id := r.counter
	r.active[id] = build(id)
	return id
}

// Get returns the entity for id, searching the active map then the archive.
func (r *Registry[T]) Get(id uint64) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.active[id]; ok {
		return v, nil
	}
	if v, ok := r.archive[id]; ok {
		return v, nil
	}
	var zero T
	return zero, ErrNotFound
}

// Update replaces the stored entity for id. Fails with ErrNotFound if id
// does not already exist in the active map (archived entries are immutable).
func (r *Registry[T]) Update(id uint64, v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; !ok {
		return ErrNotFound
	}
	r.active[id] = v
	return nil
}

// Iter calls fn for every active entry in ascending key order (insertion
// order, since ids are monotonic).
func (r *Registry[T]) Iter(fn func(id uint64, v T) bool) {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	snapshot := make(map[uint64]T, len(r.active))
	for k, v := range r.active {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if !fn(id, snapshot[id]) {
			return
		}
	}
}

// Range returns active entries with id in [from, to], inclusive, in order.
func (r *Registry[T]) Range(from, to uint64) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0)
	for id := range r.active {
		if id >= from && id <= to {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.active[id])
	}
	return out
}

// ArchiveUpTo moves every active entry with id <= cursor into the archive
// map, implementing the periodic archive_interval(class) sweep of §4.2.
func (r *Registry[T]) ArchiveUpTo(cursor uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	moved := 0
	for id, v := range r.active {
		if id <= cursor {
			r.archive[id] = v
			delete(r.active, id)
			moved++
		}
	}
	return moved
}

// Len returns the number of entries in the active map.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// Counter returns the current monotonic counter value (last assigned id).
func (r *Registry[T]) Counter() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counter
}
