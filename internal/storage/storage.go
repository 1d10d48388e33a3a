package storage

import (
	"sort"
	"sync"
)

// Storage keeps resolved configuration values by key.
type Storage interface {
	Get(key string) (any, bool)
	Set(key string, v any)
	Keys() []string
	Reset()
}

// MemoryStorage keeps resolved values in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryStorage returns an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]any),
	}
}

// Get returns the stored value for key.
func (s *MemoryStorage) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// Set stores v under key.
func (s *MemoryStorage) Set(key string, v any) {
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
}

// Keys returns the cached keys in sorted order.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Reset drops every cached value.
func (s *MemoryStorage) Reset() {
	s.mu.Lock()
	s.values = make(map[string]any)
	s.mu.Unlock()
}
