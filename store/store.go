// Package store defines the account record and the persistence port the
// authentication core reads and writes. Implementations live in sub-packages.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by lookups that match no account.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned by Create when the email is already registered.
	ErrDuplicate = errors.New("account already exists")
)

// Account is the credential record owned by the user store.
//
// SessionID is the single currently valid session; empty means logged out.
// PasswordHash is only ever written with output of the password package.
type Account struct {
	ID                   string
	Email                string
	PasswordHash         string
	SessionID            string
	FirstName            string
	LastName             string
	EmailVerified        bool
	CreatedAt            time.Time
	LastLoginAt          time.Time
	LastPasswordChangeAt time.Time
}

// Clone returns a copy that shares no state with a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Accounts is the user-record store consumed by the core.
//
// Save must persist every field of the account as one unit; in particular
// PasswordHash and SessionID are never observable half-written.
type Accounts interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, acct *Account) error
	Save(ctx context.Context, acct *Account) error
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
