package audit

import (
	"context"
	"log/slog"
	"time"
)

// Queue buffers events for the worker so emission stays off the request
// path. A full buffer drops the event with a warning rather than blocking
// the caller.
type Queue struct {
	events chan Event
	logger *slog.Logger
}

func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{events: make(chan Event, size), logger: logger}
}

func (q *Queue) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case q.events <- event:
	default:
		q.logger.WarnContext(ctx, "audit queue full, event dropped",
			"action", string(event.Action),
			"user_id", event.UserID,
		)
	}
	return nil
}

// Events is the worker's inbox.
func (q *Queue) Events() <-chan Event { return q.events }
