package containers

import "sync"

// SyncMap is a typed wrapper around sync.Map.
type SyncMap[K comparable, V any] struct {
	inner sync.Map
}

func (s *SyncMap[K, V]) Store(key K, value V) {
	s.inner.Store(key, value)
}

// LoadAndDelete removes key, returning the value it held, if any.
func (s *SyncMap[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	v, loaded := s.inner.LoadAndDelete(key)
	if loaded {
		value = v.(V)
	}
	return
}

func (s *SyncMap[K, V]) Range(f func(key K, value V) bool) {
	s.inner.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

// Keys returns the keys present when the call started. Keys stored or
// deleted concurrently may or may not be included.
func (s *SyncMap[K, V]) Keys() []K {
	var keys []K
	s.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Len counts the stored entries, with the same caveat as Keys.
func (s *SyncMap[K, V]) Len() int {
	n := 0
	s.inner.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
