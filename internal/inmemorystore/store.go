package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/syncgraph/internal/sessionstore"
)

// Store is an in-memory implementation of sessionstore.Store using sync.Map.
// Values are copied on Set and Get so callers never share a backing array
// with the store.
type Store struct {
	values sync.Map // Key: storage key, Value: []byte
}

// New creates a new, empty in-memory session store.
func New() sessionstore.Store {
	return &Store{}
}

// Get retrieves the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := s.values.Load(key)
	if !ok {
		return nil, false, nil
	}
	return clone(v.([]byte)), true, nil
}

// Set stores a copy of value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.values.Store(key, clone(value))
	return nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	s.values.Delete(key)
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
