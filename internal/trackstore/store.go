// Package trackstore provides a fixed-capacity keyed store that evicts in
// insertion order. It bounds per-track state under unbounded identity churn.
package trackstore

import (
	"errors"
	"fmt"
)

// ErrInvalidCapacity is returned when a store is created with capacity < 1.
var ErrInvalidCapacity = errors.New("store capacity must be positive")

type slot[K comparable, V any] struct {
	key   K
	value V
	live  bool
}

// Store maps keys to values with at most Cap() live entries. When a new key
// is inserted at capacity, the key inserted earliest is evicted. Overwriting
// an existing key keeps its place in the eviction order (this is not an LRU).
//
// Entries live in a ring of slots ordered oldest to newest starting at head.
// Removed keys leave a dead slot behind which is reclaimed once it reaches the
// head, or by compaction when the ring is full.
//
// Store is not safe for concurrent use.
type Store[K comparable, V any] struct {
	slots    []slot[K, V]
	index    map[K]int
	capacity int
	head     int // oldest occupied slot
	used     int // occupied slots, live or dead
}

// New creates a store holding at most capacity live keys.
func New[K comparable, V any](capacity int) (*Store[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &Store[K, V]{
		slots:    make([]slot[K, V], capacity),
		index:    make(map[K]int, capacity),
		capacity: capacity,
	}, nil
}

// Put inserts or overwrites key. If inserting a new key required evicting
// the oldest one, the evicted key is returned with ok set.
func (s *Store[K, V]) Put(key K, value V) (evicted K, ok bool) {
	if i, exists := s.index[key]; exists {
		s.slots[i].value = value
		return evicted, false
	}

	if len(s.index) >= s.capacity {
		evicted, ok = s.evictOldest()
	}
	s.reclaim()

	pos := (s.head + s.used) % s.capacity
	s.slots[pos] = slot[K, V]{key: key, value: value, live: true}
	s.index[key] = pos
	s.used++
	return evicted, ok
}

// Get returns the value stored for key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	i, ok := s.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return s.slots[i].value, true
}

// Contains reports whether key is live in the store.
func (s *Store[K, V]) Contains(key K) bool {
	_, ok := s.index[key]
	return ok
}

// Remove deletes key. Removing an absent key is a no-op and returns false.
func (s *Store[K, V]) Remove(key K) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.slots[i] = slot[K, V]{}
	delete(s.index, key)
	return true
}

// Len returns the number of live keys.
func (s *Store[K, V]) Len() int {
	return len(s.index)
}

// Cap returns the maximum number of live keys.
func (s *Store[K, V]) Cap() int {
	return s.capacity
}

// Keys returns the live keys from oldest to newest insertion.
func (s *Store[K, V]) Keys() []K {
	keys := make([]K, 0, len(s.index))
	for i := 0; i < s.used; i++ {
		sl := s.slots[(s.head+i)%s.capacity]
		if sl.live {
			keys = append(keys, sl.key)
		}
	}
	return keys
}

// evictOldest drops the oldest live key. Callers guarantee one exists.
func (s *Store[K, V]) evictOldest() (K, bool) {
	s.dropDeadHead()
	var zero K
	if s.used == 0 {
		return zero, false
	}
	key := s.slots[s.head].key
	delete(s.index, key)
	s.slots[s.head] = slot[K, V]{}
	s.head = (s.head + 1) % s.capacity
	s.used--
	return key, true
}

// reclaim makes room for one more slot at the tail.
func (s *Store[K, V]) reclaim() {
	s.dropDeadHead()
	if s.used < s.capacity {
		return
	}
	s.compact()
}

func (s *Store[K, V]) dropDeadHead() {
	for s.used > 0 && !s.slots[s.head].live {
		s.head = (s.head + 1) % s.capacity
		s.used--
	}
}

// compact rewrites live slots to the front of the ring, preserving order.
func (s *Store[K, V]) compact() {
	packed := make([]slot[K, V], s.capacity)
	n := 0
	for i := 0; i < s.used; i++ {
		sl := s.slots[(s.head+i)%s.capacity]
		if !sl.live {
			continue
		}
		packed[n] = sl
		s.index[sl.key] = n
		n++
	}
	s.slots = packed
	s.head = 0
	s.used = n
}
