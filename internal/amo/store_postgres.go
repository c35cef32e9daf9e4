package amo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	id "renoflow/pkg/domain"
	"renoflow/pkg/platform/sentinel"
	"renoflow/pkg/requestcontext"
)

// PostgresCompanyStore persists the assistance-company reference data.
//
// Schema:
//
//	CREATE TABLE amo_companies (
//	    id            UUID PRIMARY KEY,
//	    name          TEXT NOT NULL,
//	    siret         TEXT NOT NULL,
//	    phone         TEXT NOT NULL DEFAULT '',
//	    address       TEXT NOT NULL DEFAULT '',
//	    email         TEXT NOT NULL DEFAULT '',
//	    perimeter     TEXT NOT NULL DEFAULT '',
//	    commune_codes TEXT[] NOT NULL DEFAULT '{}',
//	    epci_codes    TEXT[] NOT NULL DEFAULT '{}'
//	);
//	CREATE INDEX amo_companies_commune_codes_idx ON amo_companies USING GIN (commune_codes);
type PostgresCompanyStore struct {
	db *sql.DB
}

func NewPostgresCompanyStore(db *sql.DB) *PostgresCompanyStore {
	return &PostgresCompanyStore{db: db}
}

const companyColumns = `id, name, siret, phone, address, email, perimeter, commune_codes, epci_codes`

func (s *PostgresCompanyStore) Get(ctx context.Context, companyID id.CompanyID) (*Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM amo_companies WHERE id = $1`,
		companyID.String(),
	)
	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return company, nil
}

func (s *PostgresCompanyStore) FindByCommune(ctx context.Context, commune id.CommuneCode) ([]*Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM amo_companies WHERE $1 = ANY(commune_codes) ORDER BY name`,
		commune.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("find companies by commune: %w", err)
	}
	return collectCompanies(rows)
}

func (s *PostgresCompanyStore) FindByDepartment(ctx context.Context, department string) ([]*Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM amo_companies WHERE perimeter LIKE '%' || $1 || '%' ORDER BY name`,
		department,
	)
	if err != nil {
		return nil, fmt.Errorf("find companies by department: %w", err)
	}
	return collectCompanies(rows)
}

func (s *PostgresCompanyStore) Save(ctx context.Context, company *Company) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO amo_companies (id, name, siret, phone, address, email, perimeter, commune_codes, epci_codes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			siret = EXCLUDED.siret,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			email = EXCLUDED.email,
			perimeter = EXCLUDED.perimeter,
			commune_codes = EXCLUDED.commune_codes,
			epci_codes = EXCLUDED.epci_codes`,
		company.ID.String(),
		company.Name,
		company.Siret,
		company.Phone,
		company.Address,
		company.Email,
		company.Perimeter,
		pq.Array(company.CommuneCodes),
		pq.Array(company.EPCICodes),
	)
	if err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*Company, error) {
	var (
		company Company
		rawID   string
	)
	err := row.Scan(&rawID, &company.Name, &company.Siret, &company.Phone,
		&company.Address, &company.Email, &company.Perimeter,
		pq.Array(&company.CommuneCodes), pq.Array(&company.EPCICodes))
	if err != nil {
		return nil, err
	}
	company.ID, err = id.ParseCompanyID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt company id: %w", err)
	}
	return &company, nil
}

func collectCompanies(rows *sql.Rows) ([]*Company, error) {
	defer rows.Close()
	var result []*Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		result = append(result, company)
	}
	return result, rows.Err()
}

// PostgresValidationStore persists validation records, one row per user.
//
// Schema:
//
//	CREATE TABLE amo_validations (
//	    id               UUID NOT NULL UNIQUE,
//	    user_id          UUID PRIMARY KEY,
//	    company_id       UUID NOT NULL,
//	    status           TEXT NOT NULL,
//	    comment          TEXT NOT NULL DEFAULT '',
//	    decided_at       TIMESTAMPTZ,
//	    first_name       TEXT NOT NULL DEFAULT '',
//	    last_name        TEXT NOT NULL DEFAULT '',
//	    contact_email    TEXT NOT NULL DEFAULT '',
//	    contact_phone    TEXT NOT NULL DEFAULT '',
//	    dwelling_address TEXT NOT NULL DEFAULT '',
//	    message_id       TEXT NOT NULL DEFAULT '',
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);
type PostgresValidationStore struct {
	db *sql.DB
}

func NewPostgresValidationStore(db *sql.DB) *PostgresValidationStore {
	return &PostgresValidationStore{db: db}
}

const validationColumns = `id, user_id, company_id, status, comment, decided_at,
	first_name, last_name, contact_email, contact_phone, dwelling_address,
	message_id, created_at, updated_at`

func (s *PostgresValidationStore) GetByUser(ctx context.Context, userID id.UserID) (*ValidationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+validationColumns+` FROM amo_validations WHERE user_id = $1`,
		userID.String(),
	)
	return scanValidation(row)
}

func (s *PostgresValidationStore) Get(ctx context.Context, validationID id.ValidationID) (*ValidationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+validationColumns+` FROM amo_validations WHERE id = $1`,
		validationID.String(),
	)
	return scanValidation(row)
}

// Replace supersedes the user's validation request in place: the row keyed by
// user is overwritten whole, so the previous request's id stops resolving.
func (s *PostgresValidationStore) Replace(ctx context.Context, record *ValidationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO amo_validations (id, user_id, company_id, status, comment, decided_at,
			first_name, last_name, contact_email, contact_phone, dwelling_address,
			message_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			company_id = EXCLUDED.company_id,
			status = EXCLUDED.status,
			comment = EXCLUDED.comment,
			decided_at = EXCLUDED.decided_at,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			dwelling_address = EXCLUDED.dwelling_address,
			message_id = EXCLUDED.message_id,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`,
		validationArgs(record)...,
	)
	if err != nil {
		return fmt.Errorf("replace validation record: %w", err)
	}
	return nil
}

func (s *PostgresValidationStore) Update(ctx context.Context, record *ValidationRecord) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE amo_validations SET
			status = $2,
			comment = $3,
			decided_at = $4,
			first_name = $5,
			last_name = $6,
			contact_email = $7,
			contact_phone = $8,
			dwelling_address = $9,
			message_id = $10,
			updated_at = $11
		WHERE id = $1`,
		record.ID.String(),
		record.Status.String(),
		record.Comment,
		nullTime(record.DecidedAt),
		record.FirstName,
		record.LastName,
		record.ContactEmail,
		record.ContactPhone,
		record.DwellingAddress,
		record.MessageID,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update validation record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update validation record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func validationArgs(record *ValidationRecord) []any {
	return []any{
		record.ID.String(),
		record.UserID.String(),
		record.CompanyID.String(),
		record.Status.String(),
		record.Comment,
		nullTime(record.DecidedAt),
		record.FirstName,
		record.LastName,
		record.ContactEmail,
		record.ContactPhone,
		record.DwellingAddress,
		record.MessageID,
		record.CreatedAt,
		record.UpdatedAt,
	}
}

func scanValidation(row rowScanner) (*ValidationRecord, error) {
	var (
		record     ValidationRecord
		rawID      string
		rawUser    string
		rawCompany string
		rawStatus  string
		decided    sql.NullTime
	)
	err := row.Scan(&rawID, &rawUser, &rawCompany, &rawStatus, &record.Comment, &decided,
		&record.FirstName, &record.LastName, &record.ContactEmail, &record.ContactPhone,
		&record.DwellingAddress, &record.MessageID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get validation record: %w", err)
	}

	record.ID, err = id.ParseValidationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt validation id: %w", err)
	}
	record.UserID, err = id.ParseUserID(rawUser)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id: %w", err)
	}
	record.CompanyID, err = id.ParseCompanyID(rawCompany)
	if err != nil {
		return nil, fmt.Errorf("corrupt company id: %w", err)
	}
	record.Status, err = id.ParseValidationStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("corrupt validation status: %w", err)
	}
	if decided.Valid {
		t := decided.Time
		record.DecidedAt = &t
	}
	return &record, nil
}

// PostgresTokenStore persists validation tokens.
//
// Schema:
//
//	CREATE TABLE amo_tokens (
//	    value         TEXT PRIMARY KEY,
//	    validation_id UUID NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    expires_at    TIMESTAMPTZ NOT NULL,
//	    consumed_at   TIMESTAMPTZ
//	);
type PostgresTokenStore struct {
	db *sql.DB
}

func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

func (s *PostgresTokenStore) Get(ctx context.Context, value string) (*Token, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT value, validation_id, created_at, expires_at, consumed_at
		FROM amo_tokens WHERE value = $1`,
		value,
	)
	return scanToken(row)
}

func (s *PostgresTokenStore) Save(ctx context.Context, token *Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO amo_tokens (value, validation_id, created_at, expires_at, consumed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (value) DO UPDATE SET
			validation_id = EXCLUDED.validation_id,
			expires_at = EXCLUDED.expires_at,
			consumed_at = EXCLUDED.consumed_at`,
		token.Value,
		token.ValidationID.String(),
		token.CreatedAt,
		token.ExpiresAt,
		nullTime(token.ConsumedAt),
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Consume is the replay guard: a single compare-and-set on consumed_at.
// Losing the race surfaces as ErrAlreadyUsed, exactly like finding the token
// consumed up front.
func (s *PostgresTokenStore) Consume(ctx context.Context, value string) (*Token, error) {
	now := requestcontext.Now(ctx)
	row := s.db.QueryRowContext(ctx, `
		UPDATE amo_tokens SET consumed_at = $2
		WHERE value = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING value, validation_id, created_at, expires_at, consumed_at`,
		value,
		now,
	)
	token, err := scanToken(row)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	// The guarded update matched nothing; read the row back to tell why.
	current, getErr := s.Get(ctx, value)
	if getErr != nil {
		return nil, getErr
	}
	if current.ConsumedAt != nil {
		return nil, sentinel.ErrAlreadyUsed
	}
	return nil, sentinel.ErrExpired
}

func scanToken(row rowScanner) (*Token, error) {
	var (
		token    Token
		rawID    string
		consumed sql.NullTime
	)
	err := row.Scan(&token.Value, &rawID, &token.CreatedAt, &token.ExpiresAt, &consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	token.ValidationID, err = id.ParseValidationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt validation id: %w", err)
	}
	if consumed.Valid {
		t := consumed.Time
		token.ConsumedAt = &t
	}
	return &token, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
