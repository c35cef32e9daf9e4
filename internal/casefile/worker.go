package casefile

import (
	"context"
	"log/slog"
	"time"

	"renoflow/pkg/requestcontext"
)

// Worker runs periodic full synchronization passes. One consistent request
// time is injected per pass so every record written in it carries the same
// timestamp.
type Worker struct {
	bridge   *Bridge
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(bridge *Bridge, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{bridge: bridge, interval: interval, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			passCtx := requestcontext.WithTime(ctx, time.Now())
			if err := w.bridge.SyncAll(passCtx); err != nil {
				w.logger.WarnContext(ctx, "sync pass aborted", "error", err)
			}
		}
	}
}
