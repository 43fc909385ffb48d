// Package pgstore keeps accounts in a Postgres table through pgx.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/trackauth/store"
)

const uniqueViolation = "23505"

// Schema creates the accounts table. Migrate applies it idempotently.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                      TEXT PRIMARY KEY,
	email                   TEXT NOT NULL UNIQUE,
	password_hash           TEXT NOT NULL,
	session_id              TEXT,
	first_name              TEXT NOT NULL DEFAULT '',
	last_name               TEXT NOT NULL DEFAULT '',
	email_verified          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at              TIMESTAMPTZ NOT NULL,
	last_login_at           TIMESTAMPTZ,
	last_password_change_at TIMESTAMPTZ
)`

const selectColumns = `id, email, password_hash, COALESCE(session_id, ''), first_name, last_name,
	email_verified, created_at, last_login_at, last_password_change_at`

// DB is the subset of *pgxpool.Pool and pgx.Tx the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements store.Accounts on Postgres.
type Store struct {
	db DB
}

// New returns a Store over db, typically a *pgxpool.Pool.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate creates the accounts table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByEmail loads the account with the normalized email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*store.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM accounts WHERE email = $1`, store.NormalizeEmail(email))
	return scanAccount(row)
}

// FindByID loads the account with id.
func (s *Store) FindByID(ctx context.Context, id string) (*store.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// Create inserts acct, assigning an id and creation time when absent.
// A unique violation maps to store.ErrDuplicate.
func (s *Store) Create(ctx context.Context, acct *store.Account) error {
	acct.Email = store.NormalizeEmail(acct.Email)
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, session_id, first_name, last_name,
			email_verified, created_at, last_login_at, last_password_change_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT DO NOTHING`,
		acct.ID, acct.Email, acct.PasswordHash, nullString(acct.SessionID), acct.FirstName, acct.LastName,
		acct.EmailVerified, acct.CreatedAt, nullTime(acct.LastLoginAt), nullTime(acct.LastPasswordChangeAt),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDuplicate
	}
	return nil
}

// Save writes every column in one UPDATE statement.
func (s *Store) Save(ctx context.Context, acct *store.Account) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET email = $2, password_hash = $3, session_id = $4, first_name = $5,
			last_name = $6, email_verified = $7, last_login_at = $8, last_password_change_at = $9
		 WHERE id = $1`,
		acct.ID, store.NormalizeEmail(acct.Email), acct.PasswordHash, nullString(acct.SessionID),
		acct.FirstName, acct.LastName, acct.EmailVerified, nullTime(acct.LastLoginAt), nullTime(acct.LastPasswordChangeAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*store.Account, error) {
	var (
		a           store.Account
		lastLogin   *time.Time
		passwordSet *time.Time
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.SessionID, &a.FirstName, &a.LastName,
		&a.EmailVerified, &a.CreatedAt, &lastLogin, &passwordSet)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if lastLogin != nil {
		a.LastLoginAt = *lastLogin
	}
	if passwordSet != nil {
		a.LastPasswordChangeAt = *passwordSet
	}
	return &a, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
