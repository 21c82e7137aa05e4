package hashmap

import (
	"sync"
)

// Map is a generic map guarded by an RWMutex, safe for concurrent use.
type Map[Key comparable, Value any] struct {
	m  map[Key]Value
	mu sync.RWMutex
}

func New[Key comparable, Value any]() *Map[Key, Value] {
	return &Map[Key, Value]{
		m: make(map[Key]Value),
	}
}

func (m *Map[Key, Value]) Get(key Key) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.m[key]
	return v, ok
}

// GetOrSet returns the existing value for the key if present. Otherwise it
// stores and returns the given value. The ok result is true if the value
// was already present.
func (m *Map[Key, Value]) GetOrSet(key Key, value Value) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.m[key]; ok {
		return existing, true
	}
	m.m[key] = value
	return value, false
}

func (m *Map[Key, Value]) Set(key Key, value Value) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.m[key] = value
}

func (m *Map[Key, Value]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.m)
}

// Range calls f for each entry until f returns false. The map is read-locked
// while it runs, writers block until it returns.
func (m *Map[Key, Value]) Range(f func(Key, Value) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for k, v := range m.m {
		if !f(k, v) {
			break
		}
	}
}

func (m *Map[Key, Value]) Delete(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, found := m.m[key]
	if found {
		delete(m.m, key)
	}
	return found
}
