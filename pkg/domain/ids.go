package domain

import (
	"github.com/google/uuid"

	dErrors "renoflow/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. Construct via
// the ParseX functions at trust boundaries; direct casting bypasses
// validation.
type (
	// UserID identifies a citizen account.
	UserID uuid.UUID

	// CompanyID identifies an assistance company (AMO).
	CompanyID uuid.UUID

	// ValidationID identifies an AMO validation record.
	ValidationID uuid.UUID
)

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id CompanyID) String() string    { return uuid.UUID(id).String() }
func (id ValidationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ValidationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID generates a random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewCompanyID generates a random company ID.
func NewCompanyID() CompanyID { return CompanyID(uuid.New()) }

// NewValidationID generates a random validation record ID.
func NewValidationID() ValidationID { return ValidationID(uuid.New()) }

// ParseUserID constructs a UserID from external input.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil
// UUID; no other errors are expected.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseCompanyID constructs a CompanyID from external input.
func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s, "company id")
	return CompanyID(u), err
}

// ParseValidationID constructs a ValidationID from external input.
func ParseValidationID(s string) (ValidationID, error) {
	u, err := parseUUID(s, "validation id")
	return ValidationID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be the nil uuid")
	}
	return u, nil
}
