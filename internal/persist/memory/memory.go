// Package memory provides an in-process persist.Store, used in tests and
// by embedders that want warm restarts within a single process.
package memory

import (
	"context"
	"sync"
)

// Store is a map-backed persist.Store. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns the payload for key, if present.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, true, nil
}

// Set stores a copy of payload under key.
func (s *Store) Set(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.data[key] = cp
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
