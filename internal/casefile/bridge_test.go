package casefile

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"renoflow/internal/audit"
	"renoflow/internal/filing"
	"renoflow/internal/journey"
	id "renoflow/pkg/domain"
	dErrors "renoflow/pkg/domain-errors"
	"renoflow/pkg/requestcontext"
)

type BridgeSuite struct {
	suite.Suite

	files    *InMemoryStore
	client   *filing.Fake
	journeys *journey.Service
	trail    *audit.Publisher
	bridge   *Bridge

	now time.Time
	ctx context.Context
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeSuite))
}

func (s *BridgeSuite) SetupTest() {
	s.files = NewInMemoryStore()
	s.client = filing.NewFake()

	journeys, err := journey.NewService(journey.NewInMemoryStore(), journey.DefaultConfig(), slog.Default(), nil)
	s.Require().NoError(err)
	s.journeys = journeys

	s.trail = audit.NewPublisher(audit.NewInMemoryStore())

	bridge, err := NewBridge(s.files, s.client, journeys, DefaultStatusMap(), s.trail, nil, slog.Default())
	s.Require().NoError(err)
	s.bridge = bridge

	s.now = time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *BridgeSuite) TestNewBridgeValidation() {
	_, err := NewBridge(nil, s.client, s.journeys, DefaultStatusMap(), nil, nil, nil)
	s.Error(err)

	_, err = NewBridge(s.files, s.client, s.journeys, nil, nil, nil, nil)
	s.Error(err)

	_, err = NewBridge(s.files, s.client, s.journeys, StatusMap{"bogus": id.StatusTodo}, nil, nil, nil)
	s.Error(err)
}

func (s *BridgeSuite) TestFileStepOpensFileAndMovesUnderReview() {
	userID := id.NewUserID()

	file, err := s.bridge.FileStep(s.ctx, userID, map[string]string{"surface": "80"})
	s.Require().NoError(err)
	s.Equal(id.StepCompanyChoice, file.Step)
	s.Equal(id.CaseStatusDrafting, file.LastStatus)
	s.NotEmpty(file.FileNumber)

	j, err := s.journeys.GetOrCreate(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(id.StatusUnderReview, j.Status)

	s.Run("second filing on the same step is declined", func() {
		_, err := s.bridge.FileStep(s.ctx, userID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *BridgeSuite) TestFileStepExternalFailure() {
	userID := id.NewUserID()
	s.client.CreateErr = errors.New("upstream 503")

	_, err := s.bridge.FileStep(s.ctx, userID, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	// Journey stays todo so the citizen can retry.
	j, err := s.journeys.GetOrCreate(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(id.StatusTodo, j.Status)
}

func (s *BridgeSuite) TestSyncWithoutFileIsUnchanged() {
	result, err := s.bridge.Sync(s.ctx, id.NewUserID())
	s.Require().NoError(err)
	s.Equal(SyncUnchanged, result)
}

func (s *BridgeSuite) TestSyncAppliesMapping() {
	userID := id.NewUserID()
	_, err := s.bridge.FileStep(s.ctx, userID, nil)
	s.Require().NoError(err)

	for _, tc := range []struct {
		name     string
		external id.CaseStatus
		want     id.StepStatus
	}{
		{"refused keeps the step under review", id.CaseStatusRefused, id.StatusUnderReview},
		{"dismissed keeps the step under review", id.CaseStatusDismissed, id.StatusUnderReview},
		{"drafting resets to todo", id.CaseStatusDrafting, id.StatusTodo},
		{"under review", id.CaseStatusUnderReview, id.StatusUnderReview},
	} {
		s.Run(tc.name, func() {
			s.client.SetState(userID, id.StepCompanyChoice, filing.FileState{Status: tc.external})
			_, err := s.bridge.Sync(s.ctx, userID)
			s.Require().NoError(err)

			j, err := s.journeys.GetOrCreate(s.ctx, userID)
			s.Require().NoError(err)
			s.Equal(id.StepCompanyChoice, j.Step)
			s.Equal(tc.want, j.Status)

			file, err := s.files.Get(s.ctx, userID, id.StepCompanyChoice)
			s.Require().NoError(err)
			s.Equal(tc.external, file.LastStatus)
		})
	}
}

func (s *BridgeSuite) TestSyncApprovalAdvancesJourney() {
	userID := id.NewUserID()
	_, err := s.bridge.FileStep(s.ctx, userID, nil)
	s.Require().NoError(err)

	processed := s.now.Add(-time.Hour)
	s.client.SetState(userID, id.StepCompanyChoice, filing.FileState{
		Status:      id.CaseStatusApproved,
		ProcessedAt: &processed,
	})

	result, err := s.bridge.Sync(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(SyncAdvanced, result)

	j, err := s.journeys.GetOrCreate(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(id.StepEligibility, j.Step)
	s.Equal(id.StatusTodo, j.Status)

	file, err := s.files.Get(s.ctx, userID, id.StepCompanyChoice)
	s.Require().NoError(err)
	s.Equal(id.CaseStatusApproved, file.LastStatus)
	s.Require().NotNil(file.ProcessedAt)
	s.Equal(processed, *file.ProcessedAt)

	s.Run("repeat pass on the new step is unchanged", func() {
		result, err := s.bridge.Sync(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(SyncUnchanged, result)
	})
}

func (s *BridgeSuite) TestSyncUnreachableServiceMarksInaccessible() {
	userID := id.NewUserID()
	_, err := s.bridge.FileStep(s.ctx, userID, nil)
	s.Require().NoError(err)

	s.client.GetErr = errors.New("timeout")
	result, err := s.bridge.Sync(s.ctx, userID)
	s.Equal(SyncFailed, result)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	file, err := s.files.Get(s.ctx, userID, id.StepCompanyChoice)
	s.Require().NoError(err)
	s.Equal(id.CaseStatusInaccessible, file.LastStatus)

	// The journey keeps its last known status.
	j, err := s.journeys.GetOrCreate(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(id.StatusUnderReview, j.Status)

	s.Run("recovers on the next pass", func() {
		s.client.GetErr = nil
		result, err := s.bridge.Sync(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(SyncUpdated, result)

		file, err := s.files.Get(s.ctx, userID, id.StepCompanyChoice)
		s.Require().NoError(err)
		s.Equal(id.CaseStatusDrafting, file.LastStatus)
	})
}

func (s *BridgeSuite) TestSyncCompletedJourneyIsNoop() {
	userID := id.NewUserID()
	steps := journey.DefaultConfig().Steps
	for range steps {
		_, err := s.bridge.FileStep(s.ctx, userID, nil)
		s.Require().NoError(err)
		j, err := s.journeys.GetOrCreate(s.ctx, userID)
		s.Require().NoError(err)
		s.client.SetState(userID, j.Step, filing.FileState{Status: id.CaseStatusApproved})
		_, err = s.bridge.Sync(s.ctx, userID)
		s.Require().NoError(err)
	}

	j, err := s.journeys.GetOrCreate(s.ctx, userID)
	s.Require().NoError(err)
	s.True(j.Completed())

	result, err := s.bridge.Sync(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(SyncUnchanged, result)
}

func (s *BridgeSuite) TestSyncEmitsTrailThroughCompletion() {
	userID := id.NewUserID()
	steps := journey.DefaultConfig().Steps
	for range steps {
		_, err := s.bridge.FileStep(s.ctx, userID, nil)
		s.Require().NoError(err)
		j, err := s.journeys.GetOrCreate(s.ctx, userID)
		s.Require().NoError(err)
		s.client.SetState(userID, j.Step, filing.FileState{Status: id.CaseStatusApproved})
		_, err = s.bridge.Sync(s.ctx, userID)
		s.Require().NoError(err)
	}

	events, err := s.trail.List(s.ctx, userID.String())
	s.Require().NoError(err)

	var synced, completed int
	for _, event := range events {
		switch event.Action {
		case audit.ActionStatusSynced:
			synced++
		case audit.ActionJourneyCompleted:
			completed++
		}
	}
	s.Equal(len(steps), synced, "one synced event per approved step")
	s.Equal(1, completed, "completion is recorded exactly once")

	// The completion event carries the final step's file number.
	last := events[len(events)-1]
	s.Equal(audit.ActionJourneyCompleted, last.Action)
	s.NotEmpty(last.Subject)
}

func (s *BridgeSuite) TestSyncAllCoversEveryUser() {
	first := id.NewUserID()
	second := id.NewUserID()
	for _, userID := range []id.UserID{first, second} {
		_, err := s.bridge.FileStep(s.ctx, userID, nil)
		s.Require().NoError(err)
		s.client.SetState(userID, id.StepCompanyChoice, filing.FileState{Status: id.CaseStatusApproved})
	}

	s.Require().NoError(s.bridge.SyncAll(s.ctx))

	for _, userID := range []id.UserID{first, second} {
		j, err := s.journeys.GetOrCreate(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(id.StepEligibility, j.Step)
	}
}

func (s *BridgeSuite) TestFileReturnsCurrentStepFile() {
	userID := id.NewUserID()
	_, err := s.bridge.File(s.ctx, userID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	opened, err := s.bridge.FileStep(s.ctx, userID, nil)
	s.Require().NoError(err)

	file, err := s.bridge.File(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(opened.FileID, file.FileID)
}
