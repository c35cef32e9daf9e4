package audit

import (
	"context"
	"log/slog"
)

// Worker drains queued audit events into the publisher. Emission failures
// are logged and the worker keeps going; the store write is retried on the
// next event at the earliest.
type Worker struct {
	publisher *Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(publisher *Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Emit(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit event lost",
					"action", string(event.Action),
					"user_id", event.UserID,
					"error", err,
				)
			}
		}
	}
}
