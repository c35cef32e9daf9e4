package audit

import (
	"context"
	"log/slog"
	"time"
)

// Recorder is the emission surface domain services depend on. Publisher
// satisfies it for synchronous wiring; Queue hands events to the worker
// instead.
type Recorder interface {
	Emit(ctx context.Context, event Event) error
}

// Stream is an optional secondary sink (e.g. the kafka event stream).
// Stream failures are logged, never propagated: the store write is the
// source of truth.
type Stream interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store  Store
	stream Stream
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithStream attaches a secondary best-effort sink.
func WithStream(stream Stream) Option {
	return func(p *Publisher) { p.stream = stream }
}

// WithLogger sets a logger for stream error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.stream != nil {
		if err := p.stream.Publish(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "audit stream publish failed",
				"action", string(event.Action),
				"error", err,
			)
		}
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, userID string) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}
