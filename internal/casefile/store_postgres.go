package casefile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
)

// PostgresStore persists case files in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE case_files (
//	    user_id      UUID NOT NULL,
//	    step         TEXT NOT NULL,
//	    file_id      TEXT NOT NULL,
//	    file_number  TEXT NOT NULL,
//	    url          TEXT NOT NULL,
//	    last_status  TEXT NOT NULL,
//	    submitted_at TIMESTAMPTZ,
//	    processed_at TIMESTAMPTZ,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (user_id, step)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID, step id.Step) (*CaseFile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT file_id, file_number, url, last_status, submitted_at, processed_at, created_at, updated_at
		FROM case_files
		WHERE user_id = $1 AND step = $2`,
		userID.String(),
		step.String(),
	)

	var (
		file      CaseFile
		rawStatus string
		submitted sql.NullTime
		processed sql.NullTime
	)
	err := row.Scan(&file.FileID, &file.FileNumber, &file.URL, &rawStatus,
		&submitted, &processed, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get case file: %w", err)
	}

	file.UserID = userID
	file.Step = step
	file.LastStatus, err = id.ParseCaseStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("get case file: corrupt status: %w", err)
	}
	if submitted.Valid {
		t := submitted.Time
		file.SubmittedAt = &t
	}
	if processed.Valid {
		t := processed.Time
		file.ProcessedAt = &t
	}
	return &file, nil
}

func (s *PostgresStore) Save(ctx context.Context, file *CaseFile) error {
	var submitted, processed sql.NullTime
	if file.SubmittedAt != nil {
		submitted = sql.NullTime{Time: *file.SubmittedAt, Valid: true}
	}
	if file.ProcessedAt != nil {
		processed = sql.NullTime{Time: *file.ProcessedAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO case_files (user_id, step, file_id, file_number, url, last_status,
			submitted_at, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, step) DO UPDATE SET
			file_id = EXCLUDED.file_id,
			file_number = EXCLUDED.file_number,
			url = EXCLUDED.url,
			last_status = EXCLUDED.last_status,
			submitted_at = EXCLUDED.submitted_at,
			processed_at = EXCLUDED.processed_at,
			updated_at = EXCLUDED.updated_at`,
		file.UserID.String(),
		file.Step.String(),
		file.FileID,
		file.FileNumber,
		file.URL,
		file.LastStatus.String(),
		submitted,
		processed,
		file.CreatedAt,
		file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save case file: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]id.UserID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM case_files`)
	if err != nil {
		return nil, fmt.Errorf("list case file users: %w", err)
	}
	defer rows.Close()

	var result []id.UserID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list case file users: %w", err)
		}
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return nil, fmt.Errorf("list case file users: corrupt user id: %w", err)
		}
		result = append(result, userID)
	}
	return result, rows.Err()
}
