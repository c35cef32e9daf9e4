// Package users is the thin read surface over the citizen accounts table.
// Account CRUD itself lives outside this core; the journey and validation
// workflows only need each citizen's administrative location.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
)

// Profile carries the location fields the territorial resolution needs. The
// commune code stays raw here: the amo service distinguishes missing from
// malformed at the point of use.
type Profile struct {
	UserID      id.UserID
	CommuneCode string
	EPCICode    string
}

// Store reads citizen profiles.
type Store interface {
	Get(ctx context.Context, userID id.UserID) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
}

// InMemoryStore keeps profiles in memory for tests and dev wiring.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.UserID]Profile)}
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := profile
	return &copied, nil
}

func (s *InMemoryStore) Save(_ context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = *profile
	return nil
}

// PostgresStore reads profiles from the users table.
//
// Schema (owned by the account module outside this core):
//
//	users(id UUID PRIMARY KEY, commune_code TEXT, epci_code TEXT, ...)
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT commune_code, epci_code FROM users WHERE id = $1`,
		userID.String(),
	)
	var commune, epci sql.NullString
	if err := row.Scan(&commune, &epci); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return &Profile{
		UserID:      userID,
		CommuneCode: commune.String,
		EPCICode:    epci.String,
	}, nil
}

func (s *PostgresStore) Save(ctx context.Context, profile *Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, commune_code, epci_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			commune_code = EXCLUDED.commune_code,
			epci_code = EXCLUDED.epci_code`,
		profile.UserID.String(),
		profile.CommuneCode,
		profile.EPCICode,
	)
	if err != nil {
		return fmt.Errorf("save user profile: %w", err)
	}
	return nil
}

// Directory adapts a Store to the location lookup the amo service consumes.
// A citizen with no profile row simply has no commune recorded.
type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

func (d *Directory) Location(ctx context.Context, userID id.UserID) (string, string, error) {
	profile, err := d.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", "", nil
		}
		return "", "", err
	}
	return profile.CommuneCode, profile.EPCICode, nil
}
