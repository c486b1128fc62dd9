package directory

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of views memoized when no size is configured.
const DefaultCacheSize = 256

// memo caches computed views. Concurrent computations of the same key are merged.
// The oldest entry is evicted first once the cache is full.
type memo struct {
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]interface{}
	order   []string
	limit   int
}

func newMemo(limit int) *memo {
	if limit <= 0 {
		limit = DefaultCacheSize
	}
	return &memo{entries: make(map[string]interface{}), limit: limit}
}

func (m *memo) get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *memo) put(key string, v interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return
	}
	for len(m.order) >= m.limit {
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}
	m.entries[key] = v
	m.order = append(m.order, key)
}

// do returns the cached value of key, computing it when missing. Nothing is cached unless cacheable.
func (m *memo) do(key string, cacheable bool, compute func() interface{}) interface{} {
	if !cacheable {
		return compute()
	}
	if v, ok := m.get(key); ok {
		return v
	}
	v, _, _ := m.group.Do(key, func() (interface{}, error) {
		if v, ok := m.get(key); ok {
			return v, nil
		}
		v := compute()
		m.put(key, v)
		return v, nil
	})
	return v
}

func (m *memo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
