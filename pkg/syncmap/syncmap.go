package syncmap

import (
	"sync"
	"sync/atomic"
)

// Map is a type-safe wrapper around sync.Map with an O(1) count.
type Map[K comparable, V any] struct {
	m     sync.Map
	count atomic.Int64
}

// Store stores the value for the key
func (m *Map[K, V]) Store(key K, value V) {
	if _, loaded := m.m.Swap(key, value); !loaded {
		m.count.Add(1)
	}
}

// Load loads the value for the key
func (m *Map[K, V]) Load(key K) (V, bool) {
	value, ok := m.m.Load(key)
	if !ok {
		var zero V

		return zero, false
	}

	return value.(V), true
}

// Delete deletes the value for the key
func (m *Map[K, V]) Delete(key K) {
	m.LoadAndDelete(key)
}

// LoadAndDelete loads and deletes the value for the key
func (m *Map[K, V]) LoadAndDelete(key K) (V, bool) {
	value, ok := m.m.LoadAndDelete(key)
	if !ok {
		var zero V

		return zero, false
	}

	m.count.Add(-1)

	return value.(V), true
}

// LoadOrStore returns the existing value for the key if present, otherwise it
// stores and returns the given value. loaded is true if the value was loaded.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	stored, loaded := m.m.LoadOrStore(key, value)
	if !loaded {
		m.count.Add(1)
	}

	return stored.(V), loaded
}

// Range calls f for each key-value pair in the map until f returns false
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

// Keys returns a snapshot of every key in the map
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())

	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)

		return true
	})

	return keys
}

// DeleteFunc deletes every entry for which del returns true and returns how
// many were removed.
func (m *Map[K, V]) DeleteFunc(del func(key K, value V) bool) int {
	removed := 0

	m.Range(func(key K, value V) bool {
		if del(key, value) && m.m.CompareAndDelete(key, value) {
			m.count.Add(-1)
			removed++
		}

		return true
	})

	return removed
}

// Count returns the number of items in the map
func (m *Map[K, V]) Count() int {
	return int(m.count.Load())
}
