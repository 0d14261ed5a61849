package types

import (
	"sync"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Map[T,V] is a generic thread safe map of key type [T] and value type [V]
type Map[T constraints.Ordered, V any] struct {
	m    map[T]V
	lock *sync.Mutex
}

// NewMap[T,V] creates an empty Map
func NewMap[T constraints.Ordered, V any]() *Map[T, V] {
	return &Map[T, V]{
		m:    make(map[T]V),
		lock: new(sync.Mutex),
	}
}

func (s *Map[T, V]) Get(key T) (V, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	val, ok := s.m[key]
	return val, ok
}

func (s *Map[T, V]) Add(key T, val V) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.m[key] = val
}

// Take removes key and returns the value it held
func (s *Map[T, V]) Take(key T) (V, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	val, ok := s.m[key]
	delete(s.m, key)
	return val, ok
}

func (s *Map[T, V]) Size() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.m)
}

// Keys returns the keys in ascending order
func (s *Map[T, V]) Keys() []T {
	s.lock.Lock()
	keys := maps.Keys(s.m)
	s.lock.Unlock()
	slices.Sort(keys)
	return keys
}

// RemoveAll empties the map and returns what it held
func (s *Map[T, V]) RemoveAll() map[T]V {
	s.lock.Lock()
	defer s.lock.Unlock()
	old := s.m
	s.m = make(map[T]V)
	return old
}
