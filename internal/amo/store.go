package amo

import (
	"context"

	id "renoflow/pkg/domain"
)

// CompanyStore is the read-mostly reference data of assistance companies and
// their coverage tables. The territorial index queries it; this core never
// writes it outside seeding.
type CompanyStore interface {
	Get(ctx context.Context, companyID id.CompanyID) (*Company, error)

	// FindByCommune returns companies with an explicit commune-coverage row
	// matching the exact code.
	FindByCommune(ctx context.Context, commune id.CommuneCode) ([]*Company, error)

	// FindByDepartment returns companies whose free-text perimeter contains
	// the département code as a substring.
	FindByDepartment(ctx context.Context, department string) ([]*Company, error)

	Save(ctx context.Context, company *Company) error
}

// ValidationStore persists validation records, one per journey.
// Replace supersedes any prior record for the same user in place.
type ValidationStore interface {
	GetByUser(ctx context.Context, userID id.UserID) (*ValidationRecord, error)
	Get(ctx context.Context, validationID id.ValidationID) (*ValidationRecord, error)

	// Replace upserts the record keyed by user id so the reset-on-reselect
	// semantics are an explicit operation, not a uniqueness side effect.
	Replace(ctx context.Context, record *ValidationRecord) error

	Update(ctx context.Context, record *ValidationRecord) error
}

// TokenStore persists validation tokens. Consume must be a compare-and-set
// on the consumption timestamp: it returns sentinel.ErrAlreadyUsed when the
// token was consumed first by a concurrent decision, which is the sole
// replay guard of the decision path.
type TokenStore interface {
	Get(ctx context.Context, value string) (*Token, error)
	Save(ctx context.Context, token *Token) error
	Consume(ctx context.Context, value string) (*Token, error)
}
