package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Collector/internal/scoring"
)

// pgxPool is the subset of *pgxpool.Pool the store uses.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type PostgresStore struct {
	pool pgxPool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS collection_cases (
	id                BIGINT PRIMARY KEY,
	customer_id       TEXT NOT NULL,
	amount            NUMERIC NOT NULL CHECK (amount >= 0),
	days_overdue      INTEGER NOT NULL CHECK (days_overdue >= 0),
	previous_contacts INTEGER NOT NULL CHECK (previous_contacts >= 0),
	propensity        INTEGER NOT NULL CHECK (propensity BETWEEN 0 AND 100),
	assigned_to       TEXT NOT NULL,
	risk_category     TEXT NOT NULL,
	status            TEXT NOT NULL,
	last_updated      TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_collection_cases_assigned_to ON collection_cases(assigned_to);
CREATE INDEX IF NOT EXISTS idx_collection_cases_status ON collection_cases(status);

CREATE TABLE IF NOT EXISTS collection_users (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	full_name     TEXT NOT NULL,
	role          TEXT NOT NULL,
	agency_name   TEXT,
	password_hash TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT true,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_login_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_collection_users_username_ci ON collection_users(lower(username));
CREATE UNIQUE INDEX IF NOT EXISTS idx_collection_users_email_ci ON collection_users(lower(email));

CREATE TABLE IF NOT EXISTS collection_login_attempts (
	id           BIGSERIAL PRIMARY KEY,
	username     TEXT NOT NULL,
	ip_address   TEXT NOT NULL,
	success      BOOLEAN NOT NULL,
	attempted_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables if they are missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const caseColumns = `id, customer_id, amount::text, days_overdue, previous_contacts,
	propensity, assigned_to, risk_category, status, last_updated`

const insertCase = `
	INSERT INTO collection_cases (id, customer_id, amount, days_overdue, previous_contacts,
		propensity, assigned_to, risk_category, status, last_updated)
	VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9, $10)`

func (s *PostgresStore) AppendCases(ctx context.Context, cases []*Case) error {
	if len(cases) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}

	for _, c := range cases {
		_, err := tx.Exec(ctx, insertCase,
			c.ID, c.CustomerID, c.Amount.String(), c.DaysOverdue, c.PreviousContacts,
			c.Propensity, string(c.AssignedTo), c.RiskCategory, string(c.Status), c.LastUpdated,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %d", ErrDuplicateID, c.ID)
			}
			return fmt.Errorf("insert case %d: %w", c.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCase(ctx context.Context, id int64) (*Case, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM collection_cases WHERE id = $1`, id)
	c, err := scanCase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) ListCases(ctx context.Context, filter CaseFilter) ([]*Case, error) {
	query := `SELECT ` + caseColumns + ` FROM collection_cases WHERE 1=1`
	args := []any{}
	n := 0

	if filter.Agency != "" {
		n++
		query += fmt.Sprintf(" AND assigned_to = $%d", n)
		args = append(args, string(filter.Agency))
	}
	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}

	query += " ORDER BY id ASC"

	if filter.Limit > 0 {
		n++
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MaxCaseID(ctx context.Context) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM collection_cases`).Scan(&id)
	return id, err
}

func (s *PostgresStore) UpdateCaseStatus(ctx context.Context, id int64, status CaseStatus, at time.Time) (*Case, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE collection_cases SET status = $2, last_updated = $3
		WHERE id = $1
		RETURNING `+caseColumns, id, string(status), at)
	c, err := scanCase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) UpdateCaseAssessment(ctx context.Context, id int64, a scoring.Assessment) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE collection_cases SET propensity = $2, assigned_to = $3, risk_category = $4
		WHERE id = $1`, id, a.Propensity, string(a.Agency), a.RiskCategory)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CaseStats(ctx context.Context) (*CaseStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, assigned_to, COUNT(*), COALESCE(SUM(amount), 0)::text
		FROM collection_cases
		GROUP BY status, assigned_to`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := newCaseStats()
	for rows.Next() {
		var status, agency, sum string
		var count int
		if err := rows.Scan(&status, &agency, &count, &sum); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("parse amount sum %q: %w", sum, err)
		}
		stats.Total += count
		stats.TotalAmount = stats.TotalAmount.Add(amount)
		stats.ByStatus[CaseStatus(status)] += count
		stats.ByAgency[scoring.Agency(agency)] += count
	}
	return stats, rows.Err()
}

const userColumns = `id, username, email, full_name, role, agency_name, password_hash,
	is_active, created_at, last_login_at`

func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	var agency *string
	if u.AgencyName != "" {
		a := string(u.AgencyName)
		agency = &a
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO collection_users (id, username, email, full_name, role, agency_name,
			password_hash, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.Email, u.FullName, string(u.Role), agency,
		u.PasswordHash, u.IsActive, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrUserExists, u.Username)
	}
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM collection_users WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM collection_users WHERE lower(username) = lower($1)`, username)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM collection_users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM collection_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE collection_users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

func (s *PostgresStore) RecordLoginAttempt(ctx context.Context, a *LoginAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO collection_login_attempts (username, ip_address, success, attempted_at)
		VALUES ($1, $2, $3, $4)`, a.Username, a.IPAddress, a.Success, a.AttemptedAt)
	return err
}

func scanCase(row pgx.Row) (*Case, error) {
	c := &Case{}
	var amount, agency, status string
	err := row.Scan(
		&c.ID, &c.CustomerID, &amount, &c.DaysOverdue, &c.PreviousContacts,
		&c.Propensity, &agency, &c.RiskCategory, &status, &c.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	c.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("case %d: parse amount %q: %w", c.ID, amount, err)
	}
	c.AssignedTo = scoring.Agency(agency)
	c.Status = CaseStatus(status)
	return c, nil
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	var role string
	var agency sql.NullString
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &role, &agency, &u.PasswordHash,
		&u.IsActive, &u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	if agency.Valid {
		u.AgencyName = scoring.Agency(agency.String)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
