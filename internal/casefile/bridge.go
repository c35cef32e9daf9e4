package casefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"renoflow/internal/audit"
	"renoflow/internal/filing"
	"renoflow/internal/journey"
	"renoflow/internal/platform/metrics"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
)

// Journeys is the journey surface the bridge drives. journey.Service
// satisfies it.
type Journeys interface {
	GetOrCreate(ctx context.Context, userID id.UserID) (*journey.Journey, error)
	MarkUnderReview(ctx context.Context, userID id.UserID) (*journey.Journey, error)
	SetStatus(ctx context.Context, userID id.UserID, status id.StepStatus) (*journey.Journey, error)
	Advance(ctx context.Context, userID id.UserID) (*journey.Journey, error)
}

// SyncResult labels the outcome of one synchronization pass.
type SyncResult string

const (
	SyncUnchanged SyncResult = "unchanged"
	SyncUpdated   SyncResult = "updated"
	SyncAdvanced  SyncResult = "advanced"
	SyncFailed    SyncResult = "failed"
)

// syncConcurrency bounds the fan-out of a full pass.
const syncConcurrency = 8

// Bridge owns the two external case-management interactions: opening a file
// for the journey's current step, and pulling the external status back onto
// the journey.
type Bridge struct {
	files      Store
	client     filing.Client
	journeys   Journeys
	mapping    StatusMap
	auditTrail audit.Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewBridge(
	files Store,
	client filing.Client,
	journeys Journeys,
	mapping StatusMap,
	auditTrail audit.Recorder,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*Bridge, error) {
	if files == nil {
		return nil, fmt.Errorf("case file store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("case-management client is required")
	}
	if journeys == nil {
		return nil, fmt.Errorf("journey service is required")
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("status mapping is required")
	}
	for external, internal := range mapping {
		if !external.IsValid() || !internal.IsValid() {
			return nil, fmt.Errorf("status mapping entry %q -> %q is invalid", external, internal)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		files:      files,
		client:     client,
		journeys:   journeys,
		mapping:    mapping,
		auditTrail: auditTrail,
		metrics:    m,
		logger:     logger,
	}, nil
}

// FileStep opens an external file for the journey's current step and moves
// the step under review. Allowed only while the step is todo.
func (b *Bridge) FileStep(ctx context.Context, userID id.UserID, data map[string]string) (*CaseFile, error) {
	j, err := b.journeys.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if j.Completed() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "the journey is already complete")
	}
	if !j.CanCreateFile() {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			"a file can only be created while the current step is todo")
	}

	ref, err := b.client.CreateFile(ctx, userID, j.Step, data)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "the case-management service declined the file", err)
	}

	now := requestcontext.Now(ctx)
	file := &CaseFile{
		UserID:     userID,
		Step:       j.Step,
		FileID:     ref.FileID,
		FileNumber: ref.FileNumber,
		URL:        ref.URL,
		LastStatus: id.CaseStatusDrafting,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := b.files.Save(ctx, file); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save case file", err)
	}

	if _, err := b.journeys.MarkUnderReview(ctx, userID); err != nil {
		return nil, err
	}
	b.logger.InfoContext(ctx, "case file opened",
		"user_id", userID.String(),
		"step", j.Step.String(),
		"file_number", ref.FileNumber,
	)
	return file, nil
}

// File returns the case file tracked for the journey's current step.
func (b *Bridge) File(ctx context.Context, userID id.UserID) (*CaseFile, error) {
	j, err := b.journeys.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	file, err := b.files.Get(ctx, userID, j.Step)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no file was opened for the current step")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load case file", err)
	}
	return file, nil
}

// Sync pulls the external status of the current step's file and applies the
// mapping to the journey. An approved external status auto-advances the
// journey once the step status is recorded. A failed external lookup marks
// the local record inaccessible and leaves the journey untouched.
func (b *Bridge) Sync(ctx context.Context, userID id.UserID) (SyncResult, error) {
	result, err := b.sync(ctx, userID)
	b.metrics.RecordSyncPass(string(result))
	return result, err
}

func (b *Bridge) sync(ctx context.Context, userID id.UserID) (SyncResult, error) {
	j, err := b.journeys.GetOrCreate(ctx, userID)
	if err != nil {
		return SyncFailed, err
	}
	if j.Completed() {
		return SyncUnchanged, nil
	}

	file, err := b.files.Get(ctx, userID, j.Step)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return SyncUnchanged, nil
		}
		return SyncFailed, dErrors.Wrap(dErrors.CodeInternal, "load case file", err)
	}

	state, err := b.client.GetFile(ctx, userID, j.Step)
	if err != nil {
		b.markInaccessible(ctx, file, err)
		return SyncFailed, dErrors.Wrap(dErrors.CodeUnavailable, "the case-management service is unreachable", err)
	}

	mapped, ok := b.mapping[state.Status]
	if !ok {
		return SyncFailed, dErrors.New(dErrors.CodeInternal,
			"unmapped external case status: "+state.Status.String())
	}

	now := requestcontext.Now(ctx)
	file.LastStatus = state.Status
	file.SubmittedAt = state.SubmittedAt
	file.ProcessedAt = state.ProcessedAt
	file.UpdatedAt = now
	if err := b.files.Save(ctx, file); err != nil {
		return SyncFailed, dErrors.Wrap(dErrors.CodeInternal, "save case file", err)
	}

	if mapped == j.Status {
		return SyncUnchanged, nil
	}

	if _, err := b.journeys.SetStatus(ctx, userID, mapped); err != nil {
		return SyncFailed, err
	}
	result := SyncUpdated
	completedNow := false
	if mapped == id.StatusApproved {
		advanced, err := b.journeys.Advance(ctx, userID)
		if err != nil {
			return SyncFailed, dErrors.Wrap(dErrors.CodeAdvancementFailed,
				"external approval recorded but the journey could not advance", err)
		}
		result = SyncAdvanced
		completedNow = advanced.Completed()
	}

	b.emitAudit(ctx, audit.Event{
		UserID:  userID.String(),
		Action:  audit.ActionStatusSynced,
		Subject: file.FileNumber,
		Detail:  state.Status.String(),
	})
	if completedNow {
		b.emitAudit(ctx, audit.Event{
			UserID:  userID.String(),
			Action:  audit.ActionJourneyCompleted,
			Subject: file.FileNumber,
		})
	}
	b.logger.InfoContext(ctx, "case status synced",
		"user_id", userID.String(),
		"step", j.Step.String(),
		"external_status", state.Status.String(),
		"result", string(result),
	)
	return result, nil
}

// markInaccessible records the failed lookup on the local file without
// touching the journey.
func (b *Bridge) markInaccessible(ctx context.Context, file *CaseFile, cause error) {
	file.LastStatus = id.CaseStatusInaccessible
	file.UpdatedAt = requestcontext.Now(ctx)
	if err := b.files.Save(ctx, file); err != nil {
		b.logger.WarnContext(ctx, "could not record inaccessible file",
			"user_id", file.UserID.String(),
			"error", err,
		)
		return
	}
	b.logger.WarnContext(ctx, "external file inaccessible",
		"user_id", file.UserID.String(),
		"step", file.Step.String(),
		"error", cause,
	)
}

// SyncAll runs one pass over every user holding a case file. Per-user
// failures are logged and do not stop the pass; only a cancelled context
// aborts it.
func (b *Bridge) SyncAll(ctx context.Context) error {
	userIDs, err := b.files.ListUsers(ctx)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "list case file users", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := b.Sync(ctx, userID); err != nil {
				b.logger.WarnContext(ctx, "sync pass failed for user",
					"user_id", userID.String(),
					"error", err,
				)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *Bridge) emitAudit(ctx context.Context, event audit.Event) {
	if b.auditTrail == nil {
		return
	}
	if err := b.auditTrail.Emit(ctx, event); err != nil {
		b.logger.WarnContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"error", err,
		)
	}
}
