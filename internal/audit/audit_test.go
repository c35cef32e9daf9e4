package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "renoflow/pkg/domain"
)

type AuditSuite struct {
	suite.Suite
	store  *InMemoryStore
	logger *slog.Logger
}

func TestAuditSuite(t *testing.T) {
	suite.Run(t, new(AuditSuite))
}

func (s *AuditSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *AuditSuite) TestPublisherStampsAndAppends() {
	publisher := NewPublisher(s.store, WithLogger(s.logger))
	userID := id.NewUserID().String()

	err := publisher.Emit(context.Background(), Event{
		UserID: userID,
		Action: ActionCompanySelected,
	})
	s.Require().NoError(err)

	events, err := publisher.List(context.Background(), userID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.False(events[0].Timestamp.IsZero())
	s.Equal(ActionCompanySelected, events[0].Action)
}

func (s *AuditSuite) TestPublisherStreamFailureDoesNotPropagate() {
	publisher := NewPublisher(s.store,
		WithLogger(s.logger),
		WithStream(failingStream{}),
	)

	err := publisher.Emit(context.Background(), Event{
		UserID: id.NewUserID().String(),
		Action: ActionDecisionRecorded,
	})
	s.NoError(err)
	s.Len(s.store.events, 1)
}

func (s *AuditSuite) TestWorkerDrainsQueue() {
	publisher := NewPublisher(s.store, WithLogger(s.logger))
	queue := NewQueue(16, s.logger)
	worker := NewWorker(publisher, queue.Events(), s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	userID := id.NewUserID().String()
	s.Require().NoError(queue.Emit(ctx, Event{UserID: userID, Action: ActionJourneyAdvanced}))
	s.Require().NoError(queue.Emit(ctx, Event{UserID: userID, Action: ActionJourneyCompleted}))

	s.Eventually(func() bool {
		events, err := publisher.List(context.Background(), userID)
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	events, err := publisher.List(context.Background(), userID)
	s.Require().NoError(err)
	s.Equal(ActionJourneyAdvanced, events[0].Action)
	s.Equal(ActionJourneyCompleted, events[1].Action)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("worker did not stop on context cancellation")
	}
}

func (s *AuditSuite) TestQueueDropsWhenFull() {
	queue := NewQueue(1, s.logger)
	ctx := context.Background()

	s.Require().NoError(queue.Emit(ctx, Event{Action: ActionStatusSynced}))
	// No consumer: the second emit must not block.
	s.Require().NoError(queue.Emit(ctx, Event{Action: ActionStatusSynced}))
	s.Len(queue.Events(), 1)
}

type failingStream struct{}

func (failingStream) Publish(context.Context, Event) error {
	return errors.New("broker unreachable")
}
