package artifacts

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Pathfinder/internal/model"
)

// MemoryStore keeps the current release in process memory. Bundles are
// round-tripped through their blob encoding so callers never share pointers
// with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	current string
	blobs   map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Current(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return "", ErrNotFound
	}
	return s.current, nil
}

func (s *MemoryStore) Load(_ context.Context) (*model.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return nil, ErrNotFound
	}
	return decode(s.blobs)
}

func (s *MemoryStore) Save(_ context.Context, b *model.Bundle) (string, error) {
	id := uuid.NewString()
	blobs, err := encode(b, id)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.current, s.blobs = id, blobs
	s.mu.Unlock()
	return id, nil
}
