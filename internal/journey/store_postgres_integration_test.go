//go:build integration

package journey_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"renoflow/internal/journey"
	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
	"renoflow/pkg/testutil/containers"
)

type JourneyPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *journey.PostgresStore
}

func TestJourneyPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(JourneyPostgresSuite))
}

func (s *JourneyPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = journey.NewPostgresStore(s.postgres.DB)
}

func (s *JourneyPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "journeys"))
}

func (s *JourneyPostgresSuite) TestRoundTrip() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	ctx := requestcontext.WithTime(context.Background(), now)
	userID := id.NewUserID()

	_, err := s.store.Get(ctx, userID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	j := &journey.Journey{
		UserID:    userID,
		Step:      id.StepCompanyChoice,
		Status:    id.StatusTodo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.store.Save(ctx, j))

	loaded, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.Equal(id.StepCompanyChoice, loaded.Step)
	s.Equal(id.StatusTodo, loaded.Status)
	s.Nil(loaded.CompletedAt)

	completed := now.Add(time.Hour)
	j.Step = id.StepInvoicing
	j.Status = id.StatusApproved
	j.CompletedAt = &completed
	s.Require().NoError(s.store.Save(ctx, j))

	reloaded, err := s.store.Get(ctx, userID)
	s.Require().NoError(err)
	s.Equal(id.StepInvoicing, reloaded.Step)
	s.Require().NotNil(reloaded.CompletedAt)
	s.Equal(completed, reloaded.CompletedAt.UTC())
}
