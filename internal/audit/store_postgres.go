package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events.
//
// Schema:
//
//	CREATE TABLE audit_events (
//	    id        BIGSERIAL PRIMARY KEY,
//	    ts        TIMESTAMPTZ NOT NULL,
//	    user_id   TEXT NOT NULL,
//	    action    TEXT NOT NULL,
//	    subject   TEXT NOT NULL DEFAULT '',
//	    detail    TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX audit_events_user_id_idx ON audit_events (user_id, ts);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (ts, user_id, action, subject, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		event.Timestamp,
		event.UserID,
		string(event.Action),
		event.Subject,
		event.Detail,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, user_id, action, subject, detail
		FROM audit_events
		WHERE user_id = $1
		ORDER BY ts`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var (
			event     Event
			rawAction string
		)
		if err := rows.Scan(&event.Timestamp, &event.UserID, &rawAction, &event.Subject, &event.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(rawAction)
		result = append(result, event)
	}
	return result, rows.Err()
}
