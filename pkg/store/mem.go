package store

import (
	"context"
	"strings"
	"sync"

	"github.com/voxelab/skelstitch/pkg/observability"
)

// MemStore is an in-memory store. Useful for tests and single-process runs
// where nothing needs to survive the process.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

// Get retrieves a blob, reporting found=false when the key doesn't exist.
func (s *MemStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	observability.Stores().OnStoreGet(ctx, key, ok)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

// Set stores a copy of the blob.
func (s *MemStore) Set(ctx context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cp
	observability.Stores().OnStoreSet(ctx, key, len(data))
	return nil
}

// Delete removes a blob. Deleting a missing key is not an error.
func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns every key under prefix.
func (s *MemStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Close does nothing for the in-memory store.
func (s *MemStore) Close() error {
	return nil
}

// Ensure MemStore implements Store.
var _ Store = (*MemStore)(nil)
