package cache

import "sync/atomic"

// Snapshot is a lock-free container for an immutable value that is replaced
// wholesale and read often. The engine's active rule set lives in one: the
// listener swaps in a fresh slice, pass triggers read without locking.
type Snapshot[T any] struct{ v atomic.Value }

// Load returns the stored value and whether anything has been stored yet.
func (s *Snapshot[T]) Load() (T, bool) {
	v := s.v.Load()
	if v == nil {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Store atomically swaps in the new value.
func (s *Snapshot[T]) Store(v T) {
	s.v.Store(v)
}
