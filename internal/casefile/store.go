package casefile

import (
	"context"
	"sync"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
)

// Store persists case-file records. Get returns sentinel.ErrNotFound when no
// file was opened for the (user, step) pair.
type Store interface {
	Get(ctx context.Context, userID id.UserID, step id.Step) (*CaseFile, error)
	Save(ctx context.Context, file *CaseFile) error

	// ListUsers returns every user holding at least one case file. The sync
	// worker iterates this set.
	ListUsers(ctx context.Context) ([]id.UserID, error)
}

type memoryKey struct {
	userID id.UserID
	step   id.Step
}

// InMemoryStore keeps case files in memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	files map[memoryKey]CaseFile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{files: make(map[memoryKey]CaseFile)}
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID, step id.Step) (*CaseFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.files[memoryKey{userID: userID, step: step}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := file
	return &copied, nil
}

func (s *InMemoryStore) Save(_ context.Context, file *CaseFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[memoryKey{userID: file.UserID, step: file.Step}] = *file
	return nil
}

func (s *InMemoryStore) ListUsers(_ context.Context) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.UserID]struct{})
	var result []id.UserID
	for key := range s.files {
		if _, ok := seen[key.userID]; ok {
			continue
		}
		seen[key.userID] = struct{}{}
		result = append(result, key.userID)
	}
	return result, nil
}
