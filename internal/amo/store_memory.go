package amo

import (
	"context"
	"strings"
	"sync"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
)

// InMemoryCompanyStore keeps the company reference data in memory.
type InMemoryCompanyStore struct {
	mu        sync.RWMutex
	companies map[id.CompanyID]Company
}

func NewInMemoryCompanyStore() *InMemoryCompanyStore {
	return &InMemoryCompanyStore{companies: make(map[id.CompanyID]Company)}
}

func (s *InMemoryCompanyStore) Get(_ context.Context, companyID id.CompanyID) (*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	company, ok := s.companies[companyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := company
	return &copied, nil
}

func (s *InMemoryCompanyStore) FindByCommune(_ context.Context, commune id.CommuneCode) ([]*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*Company
	for _, company := range s.companies {
		if company.CoversCommune(commune) {
			copied := company
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *InMemoryCompanyStore) FindByDepartment(_ context.Context, department string) ([]*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*Company
	for _, company := range s.companies {
		if strings.Contains(company.Perimeter, department) {
			copied := company
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *InMemoryCompanyStore) Save(_ context.Context, company *Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[company.ID] = *company
	return nil
}

// InMemoryValidationStore keeps validation records in memory, one per user.
type InMemoryValidationStore struct {
	mu      sync.RWMutex
	byUser  map[id.UserID]ValidationRecord
	indexID map[id.ValidationID]id.UserID
}

func NewInMemoryValidationStore() *InMemoryValidationStore {
	return &InMemoryValidationStore{
		byUser:  make(map[id.UserID]ValidationRecord),
		indexID: make(map[id.ValidationID]id.UserID),
	}
}

func (s *InMemoryValidationStore) GetByUser(_ context.Context, userID id.UserID) (*ValidationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := record
	return &copied, nil
}

func (s *InMemoryValidationStore) Get(_ context.Context, validationID id.ValidationID) (*ValidationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.indexID[validationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	record := s.byUser[userID]
	copied := record
	return &copied, nil
}

func (s *InMemoryValidationStore) Replace(_ context.Context, record *ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.byUser[record.UserID]; ok {
		delete(s.indexID, prior.ID)
	}
	s.byUser[record.UserID] = *record
	s.indexID[record.ID] = record.UserID
	return nil
}

func (s *InMemoryValidationStore) Update(_ context.Context, record *ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexID[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byUser[record.UserID] = *record
	return nil
}

// InMemoryTokenStore keeps validation tokens in memory. Consume is a
// mutex-guarded compare-and-set on the consumption timestamp.
type InMemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]Token
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[string]Token)}
}

func (s *InMemoryTokenStore) Get(_ context.Context, value string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[value]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := token
	return &copied, nil
}

func (s *InMemoryTokenStore) Save(_ context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Value] = *token
	return nil
}

func (s *InMemoryTokenStore) Consume(ctx context.Context, value string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[value]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	now := requestcontext.Now(ctx)
	if token.ConsumedAt != nil {
		return nil, sentinel.ErrAlreadyUsed
	}
	if token.Expired(now) {
		return nil, sentinel.ErrExpired
	}
	token.ConsumedAt = &now
	s.tokens[value] = token
	copied := token
	return &copied, nil
}
