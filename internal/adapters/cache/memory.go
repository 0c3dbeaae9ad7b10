package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultCapacity = 1024

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithCapacity bounds the number of entries. Values <= 0 keep the default.
func WithCapacity(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// Memory is a process-local LRU cache with per-entry expiry.
type Memory struct {
	mu       sync.Mutex
	capacity int
	now      func() time.Time
	order    *list.List
	entries  map[string]*list.Element
}

type entry struct {
	key     string
	value   []byte
	expires time.Time
}

// NewMemory creates an empty LRU cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		capacity: defaultCapacity,
		now:      time.Now,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a live entry and marks it most recently used.
// Expired entries are removed on access.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	it := el.Value.(entry)
	if !m.now().Before(it.expires) {
		m.order.Remove(el)
		delete(m.entries, key)
		return nil, false
	}
	m.order.MoveToFront(el)
	return it.value, true
}

// Set stores value for ttl, evicting the least recently used entries when
// the cache is full. A non-positive ttl removes the key.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		if el, ok := m.entries[key]; ok {
			m.order.Remove(el)
			delete(m.entries, key)
		}
		return nil
	}

	it := entry{key: key, value: value, expires: m.now().Add(ttl)}
	if el, ok := m.entries[key]; ok {
		el.Value = it
		m.order.MoveToFront(el)
		return nil
	}
	m.entries[key] = m.order.PushFront(it)
	for m.order.Len() > m.capacity {
		back := m.order.Back()
		if back == nil {
			break
		}
		delete(m.entries, back.Value.(entry).key)
		m.order.Remove(back)
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
