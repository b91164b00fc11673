package cache

import "sync/atomic"

// Snapshot is a lock-free, read-optimized container holding an immutable
// value that is replaced wholesale, never mutated. Readers that captured a
// value keep using it after a swap.
type Snapshot[T any] struct{ p atomic.Pointer[T] }

// Load returns the stored value and whether one has been stored yet.
func (s *Snapshot[T]) Load() (T, bool) {
	if v := s.p.Load(); v != nil {
		return *v, true
	}
	var zero T
	return zero, false
}

// Store atomically swaps in the new value.
func (s *Snapshot[T]) Store(v T) { s.p.Store(&v) }
