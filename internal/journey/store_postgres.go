package journey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
)

// PostgresStore persists journeys in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE journeys (
//	    user_id      UUID PRIMARY KEY,
//	    step         TEXT NOT NULL,
//	    status       TEXT NOT NULL,
//	    completed_at TIMESTAMPTZ,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (*Journey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, step, status, completed_at, created_at, updated_at
		FROM journeys
		WHERE user_id = $1`,
		userID.String(),
	)

	var (
		journey   Journey
		rawUserID string
		rawStep   string
		rawStatus string
		completed sql.NullTime
	)
	err := row.Scan(&rawUserID, &rawStep, &rawStatus, &completed, &journey.CreatedAt, &journey.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get journey: %w", err)
	}

	journey.UserID, err = id.ParseUserID(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("get journey: corrupt user id: %w", err)
	}
	journey.Step, err = id.ParseStep(rawStep)
	if err != nil {
		return nil, fmt.Errorf("get journey: corrupt step: %w", err)
	}
	journey.Status, err = id.ParseStepStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("get journey: corrupt status: %w", err)
	}
	if completed.Valid {
		t := completed.Time
		journey.CompletedAt = &t
	}
	return &journey, nil
}

func (s *PostgresStore) Save(ctx context.Context, journey *Journey) error {
	var completed sql.NullTime
	if journey.CompletedAt != nil {
		completed = sql.NullTime{Time: *journey.CompletedAt, Valid: true}
	}
	now := requestcontext.Now(ctx)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journeys (user_id, step, status, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			step = EXCLUDED.step,
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at`,
		journey.UserID.String(),
		journey.Step.String(),
		journey.Status.String(),
		completed,
		now,
	)
	if err != nil {
		return fmt.Errorf("save journey: %w", err)
	}
	return nil
}
