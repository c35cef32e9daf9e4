package journey

import (
	"context"

	id "renoflow/pkg/domain"
)

// Store persists journeys, one per citizen. Implementations return
// sentinel.ErrNotFound when no journey exists yet; the service creates one
// lazily in that case.
type Store interface {
	Get(ctx context.Context, userID id.UserID) (*Journey, error)
	Save(ctx context.Context, journey *Journey) error
}
