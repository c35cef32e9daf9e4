package journey

import (
	"context"
	"sync"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
)

// InMemoryStore keeps journeys in a map. Used by unit tests and the dev
// wiring path when postgres is unconfigured.
type InMemoryStore struct {
	mu       sync.RWMutex
	journeys map[id.UserID]Journey
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{journeys: make(map[id.UserID]Journey)}
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (*Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	journey, ok := s.journeys[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := journey
	return &copied, nil
}

func (s *InMemoryStore) Save(_ context.Context, journey *Journey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journeys[journey.UserID] = *journey
	return nil
}
