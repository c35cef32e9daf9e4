package service

import (
	"context"
	"errors"
	"time"

	"renoflow/internal/amo"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/sentinel"
)

// TokenIntrospection renders a company's decision page: who asked (possibly
// already purged), which company the request is assigned to, and whether the
// link can still carry a decision.
type TokenIntrospection struct {
	ValidationID id.ValidationID
	Status       id.ValidationStatus
	Comment      string
	DecidedAt    *time.Time

	CompanyID   id.CompanyID
	CompanyName string

	// Display fields; empty once the record is purged.
	FirstName       string
	LastName        string
	DwellingAddress string

	ExpiresAt time.Time
	Consumed  bool
}

// Introspect resolves a token into its decision-page view. Unknown and
// expired tokens are hard failures; a consumed token is readable, with
// Consumed set, so the confirmation page still renders.
func (s *Service) Introspect(ctx context.Context, tokenValue string) (*TokenIntrospection, error) {
	token, err := s.lookupToken(ctx, tokenValue, false)
	if err != nil {
		return nil, err
	}

	record, err := s.validations.Get(ctx, token.ValidationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "validation request not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load validation record", err)
	}

	view := &TokenIntrospection{
		ValidationID:    record.ID,
		Status:          record.Status,
		Comment:         record.Comment,
		DecidedAt:       record.DecidedAt,
		CompanyID:       record.CompanyID,
		FirstName:       record.FirstName,
		LastName:        record.LastName,
		DwellingAddress: record.DwellingAddress,
		ExpiresAt:       token.ExpiresAt,
		Consumed:        token.ConsumedAt != nil,
	}

	company, err := s.companies.Get(ctx, record.CompanyID)
	if err == nil {
		view.CompanyName = company.Name
	}
	return view, nil
}

// Validation returns the journey's current validation record, if any.
func (s *Service) Validation(ctx context.Context, userID id.UserID) (*amo.ValidationRecord, error) {
	record, err := s.validations.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no validation request for this journey")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load validation record", err)
	}
	return record, nil
}
