package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/MrEthical07/trackauth/store"
)

const idSize = 16

// NewID returns a random 128-bit session id, base64url without padding.
func NewID() (string, error) {
	var raw [idSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// Store reads and writes the session id field through the account store.
type Store struct {
	accounts store.Accounts
	newID    func() (string, error)
}

// NewStore wraps accounts.
func NewStore(accounts store.Accounts) *Store {
	return &Store{accounts: accounts, newID: NewID}
}

// Load returns the account with the given id.
func (s *Store) Load(ctx context.Context, id string) (*store.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// Rotate stamps a fresh session id on acct and saves the whole record, so any
// other pending field changes (password hash, timestamps) land in the same write.
// On failure acct keeps its previous session id.
func (s *Store) Rotate(ctx context.Context, acct *store.Account) (string, error) {
	sid, err := s.newID()
	if err != nil {
		return "", err
	}

	prev := acct.SessionID
	acct.SessionID = sid
	if err := s.accounts.Save(ctx, acct); err != nil {
		acct.SessionID = prev
		return "", err
	}
	return sid, nil
}

// Clear removes the session id. Clearing an account with no session is a no-op.
func (s *Store) Clear(ctx context.Context, acct *store.Account) error {
	if acct.SessionID == "" {
		return nil
	}

	prev := acct.SessionID
	acct.SessionID = ""
	if err := s.accounts.Save(ctx, acct); err != nil {
		acct.SessionID = prev
		return err
	}
	return nil
}

// Matches reports whether sid is the account's current session. An account
// without a session matches nothing.
func Matches(acct *store.Account, sid string) bool {
	if acct == nil || acct.SessionID == "" || sid == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(acct.SessionID), []byte(sid)) == 1
}
