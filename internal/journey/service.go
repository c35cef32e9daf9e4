package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"renoflow/internal/platform/metrics"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
)

// Service owns the journey state machine: the (step, status) pair, the legal
// transitions between states, and the advancement operation. Guard failures
// are declined operations (CodeInvalidState), never panics; no mutation
// happens on a declined operation.
type Service struct {
	store   Store
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, cfg Config, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journey store is required")
	}
	if len(cfg.Steps) == 0 {
		return nil, fmt.Errorf("journey step order is required")
	}
	if !cfg.Contains(cfg.InitialStep) {
		return nil, fmt.Errorf("initial step %q is not in the configured order", cfg.InitialStep)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cfg: cfg, logger: logger, metrics: m}, nil
}

// GetOrCreate returns the citizen's journey, creating it lazily on first
// access at (initial step, todo).
func (s *Service) GetOrCreate(ctx context.Context, userID id.UserID) (*Journey, error) {
	journey, err := s.store.Get(ctx, userID)
	if err == nil {
		return journey, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load journey", err)
	}

	now := requestcontext.Now(ctx)
	journey = &Journey{
		UserID:    userID,
		Step:      s.cfg.InitialStep,
		Status:    id.StatusTodo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, journey); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create journey", err)
	}
	s.logger.InfoContext(ctx, "journey created",
		"user_id", userID.String(),
		"step", journey.Step.String(),
	)
	return journey, nil
}

// MarkUnderReview performs the file-creation transition: allowed only from
// todo, sets the current step under review.
func (s *Service) MarkUnderReview(ctx context.Context, userID id.UserID) (*Journey, error) {
	return s.transition(ctx, userID, func(j *Journey) error {
		if !j.CanCreateFile() {
			return dErrors.New(dErrors.CodeInvalidState,
				"a file can only be created while the current step is todo")
		}
		j.Status = id.StatusUnderReview
		return nil
	})
}

// Validate approves the current step: allowed only from under-review.
func (s *Service) Validate(ctx context.Context, userID id.UserID) (*Journey, error) {
	return s.transition(ctx, userID, func(j *Journey) error {
		if !j.CanValidate() {
			return dErrors.New(dErrors.CodeInvalidState,
				"the current step can only be validated while under review")
		}
		j.Status = id.StatusApproved
		return nil
	})
}

// ResetToTodo puts the current step back to todo. Used when a company
// rejects the citizen's request so they can pick another company or fix
// their situation.
func (s *Service) ResetToTodo(ctx context.Context, userID id.UserID) (*Journey, error) {
	return s.transition(ctx, userID, func(j *Journey) error {
		j.Status = id.StatusTodo
		return nil
	})
}

// SetStatus records an externally sourced status for the current step. Used
// by the case-status bridge, which owns the mapping from external statuses.
func (s *Service) SetStatus(ctx context.Context, userID id.UserID, status id.StepStatus) (*Journey, error) {
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid step status: "+status.String())
	}
	return s.transition(ctx, userID, func(j *Journey) error {
		j.Status = status
		return nil
	})
}

// Advance moves an approved journey to (next step, todo), or marks it
// complete when the final step is approved. Advancing an already-complete
// journey is a no-op success, so the completion check stays idempotent.
func (s *Service) Advance(ctx context.Context, userID id.UserID) (*Journey, error) {
	return s.transition(ctx, userID, func(j *Journey) error {
		if j.Completed() {
			return errNoop
		}
		if !j.CanAdvance() {
			return dErrors.New(dErrors.CodeInvalidState,
				"the journey can only advance once the current step is approved")
		}
		next, ok := s.cfg.Next(j.Step)
		if !ok {
			now := requestcontext.Now(ctx)
			j.CompletedAt = &now
			s.metrics.RecordCompletion()
			s.logger.InfoContext(ctx, "journey completed", "user_id", j.UserID.String())
			return nil
		}
		j.Step = next
		j.Status = id.StatusTodo
		s.metrics.RecordAdvancement()
		s.logger.InfoContext(ctx, "journey advanced",
			"user_id", j.UserID.String(),
			"step", next.String(),
		)
		return nil
	})
}

// errNoop signals a transition that should succeed without writing.
var errNoop = errors.New("noop transition")

func (s *Service) transition(ctx context.Context, userID id.UserID, mutate func(*Journey) error) (*Journey, error) {
	journey, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := mutate(journey); err != nil {
		if errors.Is(err, errNoop) {
			return journey, nil
		}
		return nil, err
	}
	journey.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Save(ctx, journey); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save journey", err)
	}
	return journey, nil
}
