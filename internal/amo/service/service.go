// Package service orchestrates the AMO validation workflow: citizen-side
// company selection and company-side decisions through a one-time secure
// link. It mutates the journey state machine and is gated by the territorial
// resolution engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"renoflow/internal/amo"
	"renoflow/internal/audit"
	"renoflow/internal/journey"
	"renoflow/internal/mailer"
	"renoflow/internal/platform/metrics"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
)

// Journeys is the journey state machine surface this workflow drives.
// journey.Service satisfies it.
type Journeys interface {
	GetOrCreate(ctx context.Context, userID id.UserID) (*journey.Journey, error)
	MarkUnderReview(ctx context.Context, userID id.UserID) (*journey.Journey, error)
	Validate(ctx context.Context, userID id.UserID) (*journey.Journey, error)
	Advance(ctx context.Context, userID id.UserID) (*journey.Journey, error)
	ResetToTodo(ctx context.Context, userID id.UserID) (*journey.Journey, error)
}

// Resolver is the territorial resolution surface. territory.Engine
// satisfies it.
type Resolver interface {
	ListCompanies(ctx context.Context, commune id.CommuneCode) ([]*amo.Company, error)
	Authorize(ctx context.Context, companyID id.CompanyID, commune id.CommuneCode, epci id.EPCICode) (bool, error)
}

// Directory supplies the citizen's administrative location from the personal
// data store. The commune code comes back raw: the service distinguishes a
// missing code from a malformed one.
type Directory interface {
	Location(ctx context.Context, userID id.UserID) (commune string, epci string, err error)
}

// Config holds the injected workflow policy.
type Config struct {
	// TokenValidity is the fixed validity window of a validation token.
	TokenValidity time.Duration

	// DecisionBaseURL prefixes the one-time link sent to the company.
	DecisionBaseURL string
}

// DefaultConfig matches production policy: 30-day tokens.
func DefaultConfig() Config {
	return Config{
		TokenValidity:   30 * 24 * time.Hour,
		DecisionBaseURL: "https://renoflow.example/amo/validation",
	}
}

// Service implements the workflow. All exposed operations return coded
// domain errors; nothing panics across this boundary.
type Service struct {
	validations amo.ValidationStore
	tokens      amo.TokenStore
	companies   amo.CompanyStore
	journeys    Journeys
	resolver    Resolver
	directory   Directory
	mail        mailer.Mailer
	auditTrail  audit.Recorder
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	cfg         Config
}

func New(
	validations amo.ValidationStore,
	tokens amo.TokenStore,
	companies amo.CompanyStore,
	journeys Journeys,
	resolver Resolver,
	directory Directory,
	mail mailer.Mailer,
	auditTrail audit.Recorder,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) (*Service, error) {
	if validations == nil || tokens == nil || companies == nil {
		return nil, fmt.Errorf("amo stores are required")
	}
	if journeys == nil {
		return nil, fmt.Errorf("journey service is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("territorial resolver is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if cfg.TokenValidity <= 0 {
		return nil, fmt.Errorf("token validity window must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		validations: validations,
		tokens:      tokens,
		companies:   companies,
		journeys:    journeys,
		resolver:    resolver,
		directory:   directory,
		mail:        mail,
		auditTrail:  auditTrail,
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("renoflow/amo"),
		cfg:         cfg,
	}, nil
}

// SelectionInput carries the citizen's required personal fields. Values are
// trimmed before validation; empty fields are rejected individually.
type SelectionInput struct {
	CompanyID       id.CompanyID
	FirstName       string
	LastName        string
	ContactEmail    string
	ContactPhone    string
	DwellingAddress string
}

// SelectionResult is returned to the citizen-facing caller.
type SelectionResult struct {
	Record *amo.ValidationRecord
	Token  *amo.Token
}

// Discover lists the companies authorized to serve the citizen's location.
func (s *Service) Discover(ctx context.Context, userID id.UserID) ([]*amo.Company, error) {
	commune, _, err := s.location(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolver.ListCompanies(ctx, commune)
}

// SelectCompany records the citizen's choice: validates input, checks the
// journey guard, authorizes the company territorially, supersedes any prior
// validation record, issues a fresh 30-day token, and notifies the company
// best-effort. The journey moves to under-review.
func (s *Service) SelectCompany(ctx context.Context, userID id.UserID, input SelectionInput) (*SelectionResult, error) {
	ctx, span := s.tracer.Start(ctx, "amo.select_company",
		trace.WithAttributes(attribute.String("company_id", input.CompanyID.String())))
	defer span.End()

	start := time.Now()
	result, err := s.selectCompany(ctx, userID, input)
	s.metrics.ObserveSelectionDuration(time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordSelection("declined")
		return nil, err
	}
	s.metrics.RecordSelection("accepted")
	return result, nil
}

func (s *Service) selectCompany(ctx context.Context, userID id.UserID, input SelectionInput) (*SelectionResult, error) {
	input, err := trimAndValidate(input)
	if err != nil {
		return nil, err
	}

	j, err := s.journeys.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if j.Step != id.StepCompanyChoice {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			"an assistance company can only be chosen during the company-choice step")
	}
	if j.Status == id.StatusApproved {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			"the company-choice step is already approved")
	}

	commune, epci, err := s.location(ctx, userID)
	if err != nil {
		return nil, err
	}

	authorized, err := s.resolver.Authorize(ctx, input.CompanyID, commune, epci)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			"this company does not cover your commune")
	}

	company, err := s.companies.Get(ctx, input.CompanyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown assistance company")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "company lookup", err)
	}

	now := requestcontext.Now(ctx)
	record := &amo.ValidationRecord{
		ID:              id.NewValidationID(),
		UserID:          userID,
		CompanyID:       input.CompanyID,
		Status:          id.ValidationPending,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		ContactEmail:    input.ContactEmail,
		ContactPhone:    input.ContactPhone,
		DwellingAddress: input.DwellingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.validations.Replace(ctx, record); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save validation record", err)
	}

	token := &amo.Token{
		Value:        uuid.NewString(),
		ValidationID: record.ID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.TokenValidity),
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save validation token", err)
	}

	s.notifyCompany(ctx, company, record, token, commune)

	if j.CanCreateFile() {
		if _, err := s.journeys.MarkUnderReview(ctx, userID); err != nil {
			return nil, err
		}
	}

	s.emitAudit(ctx, audit.Event{
		UserID:  userID.String(),
		Action:  audit.ActionCompanySelected,
		Subject: input.CompanyID.String(),
	})

	return &SelectionResult{Record: record, Token: token}, nil
}

// notifyCompany delivers the validation request to the company's parsed
// address list. Delivery is best-effort: failure is logged and never fails
// the selection.
func (s *Service) notifyCompany(ctx context.Context, company *amo.Company, record *amo.ValidationRecord, token *amo.Token, commune id.CommuneCode) {
	if s.mail == nil {
		return
	}
	to := company.Emails()
	if len(to) == 0 {
		s.logger.WarnContext(ctx, "company has no contact email",
			"company_id", company.ID.String(),
			"validation_id", record.ID.String(),
		)
		return
	}
	messageID, err := s.mail.SendValidationRequest(ctx, to, mailer.ValidationRequest{
		FirstName:   record.FirstName,
		LastName:    record.LastName,
		Commune:     commune.String(),
		Address:     record.DwellingAddress,
		DecisionURL: s.cfg.DecisionBaseURL + "?token=" + token.Value,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "validation request email failed",
			"company_id", company.ID.String(),
			"validation_id", record.ID.String(),
			"error", err,
		)
		return
	}
	record.MessageID = messageID
	if err := s.validations.Update(ctx, record); err != nil {
		s.logger.WarnContext(ctx, "could not record message id",
			"validation_id", record.ID.String(),
			"error", err,
		)
	}
}

// location loads and parses the citizen's commune, distinguishing a missing
// code from a malformed one.
func (s *Service) location(ctx context.Context, userID id.UserID) (id.CommuneCode, id.EPCICode, error) {
	rawCommune, rawEPCI, err := s.directory.Location(ctx, userID)
	if err != nil {
		return "", "", dErrors.Wrap(dErrors.CodeInternal, "load citizen location", err)
	}
	if strings.TrimSpace(rawCommune) == "" {
		return "", "", dErrors.New(dErrors.CodeInvalidState,
			"no commune is recorded for this account")
	}
	commune, err := id.ParseCommuneCode(strings.TrimSpace(rawCommune))
	if err != nil {
		return "", "", err
	}
	return commune, id.EPCICode(strings.TrimSpace(rawEPCI)), nil
}

func trimAndValidate(input SelectionInput) (SelectionInput, error) {
	if input.CompanyID.IsZero() {
		return input, dErrors.New(dErrors.CodeInvalidInput, "company is required")
	}
	fields := []struct {
		value *string
		label string
	}{
		{&input.FirstName, "first name"},
		{&input.LastName, "last name"},
		{&input.ContactEmail, "email"},
		{&input.ContactPhone, "phone"},
		{&input.DwellingAddress, "dwelling address"},
	}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return input, dErrors.New(dErrors.CodeInvalidInput, f.label+" is required")
		}
	}
	return input, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditTrail == nil {
		return
	}
	if err := s.auditTrail.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"error", err,
		)
	}
}
