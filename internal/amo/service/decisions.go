package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"renoflow/internal/amo"
	"renoflow/internal/audit"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
)

// minRejectionCommentLen is the minimum trimmed length of the justification
// a company must give when rejecting a dwelling's eligibility.
const minRejectionCommentLen = 10

// Approve records the company's confirmation that the dwelling is eligible.
// The token is consumed, personal data purged, and the journey validated and
// advanced. An advancement failure after the approval write is surfaced as
// CodeAdvancementFailed: the record reads eligible but the citizen is stuck.
func (s *Service) Approve(ctx context.Context, actor id.Identity, tokenValue, comment string) (*amo.ValidationRecord, error) {
	ctx, span := s.tracer.Start(ctx, "amo.approve")
	defer span.End()

	record, err := s.decide(ctx, actor, tokenValue, decision{
		status:  id.ValidationEligible,
		comment: strings.TrimSpace(comment),
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("validation_id", record.ID.String()))

	if _, err := s.journeys.Validate(ctx, record.UserID); err != nil {
		return record, dErrors.Wrap(dErrors.CodeAdvancementFailed,
			"eligibility approved but the journey could not be validated", err)
	}
	advanced, err := s.journeys.Advance(ctx, record.UserID)
	if err != nil {
		return record, dErrors.Wrap(dErrors.CodeAdvancementFailed,
			"eligibility approved but the journey could not advance", err)
	}
	s.emitAudit(ctx, audit.Event{
		UserID:  record.UserID.String(),
		Action:  audit.ActionJourneyAdvanced,
		Subject: record.CompanyID.String(),
		Detail:  "amo approval",
	})
	if advanced.Completed() {
		s.emitAudit(ctx, audit.Event{
			UserID:  record.UserID.String(),
			Action:  audit.ActionJourneyCompleted,
			Subject: record.CompanyID.String(),
		})
	}
	return record, nil
}

// RejectEligibility records that the dwelling does not qualify. A trimmed
// justification of at least 10 characters is required before any mutation;
// the journey resets to todo so the citizen can pick another company.
func (s *Service) RejectEligibility(ctx context.Context, actor id.Identity, tokenValue, comment string) (*amo.ValidationRecord, error) {
	ctx, span := s.tracer.Start(ctx, "amo.reject_eligibility")
	defer span.End()

	trimmed := strings.TrimSpace(comment)
	if utf8.RuneCountInString(trimmed) < minRejectionCommentLen {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"a justification of at least 10 characters is required to reject eligibility")
	}

	record, err := s.decide(ctx, actor, tokenValue, decision{
		status:  id.ValidationNotEligible,
		comment: trimmed,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.journeys.ResetToTodo(ctx, record.UserID); err != nil {
		return record, err
	}
	return record, nil
}

// RejectAssistance records that the company declines to accompany this
// citizen for reasons other than eligibility. Same mechanics as
// RejectEligibility without the comment-length rule.
func (s *Service) RejectAssistance(ctx context.Context, actor id.Identity, tokenValue, comment string) (*amo.ValidationRecord, error) {
	ctx, span := s.tracer.Start(ctx, "amo.reject_assistance")
	defer span.End()

	record, err := s.decide(ctx, actor, tokenValue, decision{
		status:  id.ValidationAssistanceRefuse,
		comment: strings.TrimSpace(comment),
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.journeys.ResetToTodo(ctx, record.UserID); err != nil {
		return record, err
	}
	return record, nil
}

type decision struct {
	status  id.ValidationStatus
	comment string
}

// decide runs the shared decision mechanics: ownership dispatch, token
// gate, record mutation, token consumption and PII purge.
func (s *Service) decide(ctx context.Context, actor id.Identity, tokenValue string, d decision) (*amo.ValidationRecord, error) {
	if err := preCheckRole(actor); err != nil {
		return nil, err
	}

	token, err := s.lookupToken(ctx, tokenValue, true)
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

	if err := checkOwnership(actor, record); err != nil {
		return nil, err
	}

	// Consumption is the sole replay guard: a compare-and-set in the store.
	if _, err := s.tokens.Consume(ctx, tokenValue); err != nil {
		return nil, s.tokenError(err)
	}

	now := requestcontext.Now(ctx)
	record.Status = d.status
	record.Comment = d.comment
	record.DecidedAt = &now
	record.PurgePersonalData()
	record.UpdatedAt = now
	if err := s.validations.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save decision", err)
	}

	s.metrics.RecordDecision(d.status.String())
	s.emitAudit(ctx, audit.Event{
		UserID:  record.UserID.String(),
		Action:  audit.ActionDecisionRecorded,
		Subject: record.CompanyID.String(),
		Detail:  d.status.String(),
	})
	s.logger.InfoContext(ctx, "amo decision recorded",
		"validation_id", record.ID.String(),
		"status", d.status.String(),
	)
	return record, nil
}

// preCheckRole enforces the role rules that apply before any lookup: only
// admins and company-scoped AMO agents may decide.
func preCheckRole(actor id.Identity) error {
	switch actor.Role {
	case id.RoleAdmin:
		return nil
	case id.RoleAMO:
		if actor.CompanyID.IsZero() {
			return dErrors.New(dErrors.CodeForbidden,
				"no assistance company is configured for this account")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeForbidden,
			"this operation is restricted to assistance companies")
	}
}

// checkOwnership scopes AMO agents to their own records. Admins bypass.
func checkOwnership(actor id.Identity, record *amo.ValidationRecord) error {
	switch actor.Role {
	case id.RoleAdmin:
		return nil
	case id.RoleAMO:
		if actor.CompanyID != record.CompanyID {
			return dErrors.New(dErrors.CodeForbidden,
				"this validation request is assigned to another company")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeForbidden,
			"this operation is restricted to assistance companies")
	}
}

// lookupToken fetches and gates a token. Expired and unknown tokens are
// hard failures everywhere; a consumed token blocks decisions
// (requireUsable) but not introspection.
func (s *Service) lookupToken(ctx context.Context, value string, requireUsable bool) (*amo.Token, error) {
	if strings.TrimSpace(value) == "" {
		s.metrics.RecordTokenRejection("not_found")
		return nil, dErrors.New(dErrors.CodeNotFound, "validation link not found")
	}
	token, err := s.tokens.Get(ctx, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.RecordTokenRejection("not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "validation link not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load validation token", err)
	}
	now := requestcontext.Now(ctx)
	if token.Expired(now) {
		s.metrics.RecordTokenRejection("expired")
		return nil, dErrors.New(dErrors.CodeExpired, "this validation link has expired")
	}
	if requireUsable && token.ConsumedAt != nil {
		s.metrics.RecordTokenRejection("consumed")
		return nil, dErrors.New(dErrors.CodeAlreadyUsed, "this validation link was already used")
	}
	return token, nil
}

func (s *Service) tokenError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		s.metrics.RecordTokenRejection("consumed")
		return dErrors.New(dErrors.CodeAlreadyUsed, "this validation link was already used")
	case errors.Is(err, sentinel.ErrExpired):
		s.metrics.RecordTokenRejection("expired")
		return dErrors.New(dErrors.CodeExpired, "this validation link has expired")
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.RecordTokenRejection("not_found")
		return dErrors.New(dErrors.CodeNotFound, "validation link not found")
	default:
		return dErrors.Wrap(dErrors.CodeInternal, "consume validation token", err)
	}
}
