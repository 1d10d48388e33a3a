package secrets

import (
	"sync"

	"github.com/eugenenazirov/strata/internal/value"
)

// MemoryStore keeps secrets in-memory and guards access with a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]map[string]any
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]map[string]any)}
}

// Put stores a copy of data under path.
func (s *MemoryStore) Put(path string, data map[string]any) error {
	p, err := normalizePath(path)
	if err != nil {
		return err
	}
	normalized, _ := value.Normalize(data).(map[string]any)

	s.mu.Lock()
	s.secrets[p] = normalized
	s.mu.Unlock()
	return nil
}

// Delete removes the secret at path.
func (s *MemoryStore) Delete(path string) {
	p, err := normalizePath(path)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.secrets, p)
	s.mu.Unlock()
}

// Read returns a copy of the secret at path.
func (s *MemoryStore) Read(path string) (any, bool, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.secrets[p]
	if !ok {
		return nil, false, nil
	}
	return value.Normalize(data), true, nil
}

// List returns the direct children of prefix.
func (s *MemoryStore) List(prefix string) ([]string, error) {
	s.mu.RLock()
	paths := make([]string, 0, len(s.secrets))
	for p := range s.secrets {
		paths = append(paths, p)
	}
	s.mu.RUnlock()

	return childEntries(paths, prefix), nil
}
