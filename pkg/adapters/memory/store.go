package memory

import (
	"context"
	"sync"

	"github.com/aretw0/jackpatch/pkg/domain"
)

// Store implements ports.PatchStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.ConnectionSet
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.ConnectionSet),
	}
}

// Save persists a copy of the set.
func (s *Store) Save(ctx context.Context, path string, set domain.ConnectionSet) error {
	copied := set.Clone()
	if copied == nil {
		copied = domain.ConnectionSet{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = copied
	return nil
}

// Load returns a copy of the stored set so callers can't mutate the store.
func (s *Store) Load(ctx context.Context, path string) (domain.ConnectionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.data[path]
	if !ok {
		return nil, domain.ErrPatchNotFound
	}
	return set.Clone(), nil
}

// Paths returns the stored paths.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.data))
	for p := range s.data {
		paths = append(paths, p)
	}
	return paths
}
