package wallet

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu         sync.RWMutex
	identities map[string]Identity
}

// NewMemoryStore builds an in-memory identity store for tests and local runs.
func NewMemoryStore() Store {
	return &memoryStore{identities: make(map[string]Identity)}
}

func (s *memoryStore) Get(_ context.Context, label string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.identities[label]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return id, nil
}

func (s *memoryStore) Put(_ context.Context, label string, id Identity) error {
	if !id.Valid() {
		return ErrInvalidIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id.Label = label
	if id.Type == "" {
		id.Type = TypeX509
	}
	s.identities[label] = id
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	labels := make([]string, 0, len(s.identities))
	for label := range s.identities {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}
