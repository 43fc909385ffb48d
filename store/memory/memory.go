// Package memory is an in-process store.Accounts used by tests and the
// single-node demo server.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/trackauth/store"
)

// Store keeps accounts in maps guarded by a RWMutex. Records are copied on
// the way in and out so callers never share memory with the store.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*store.Account
	byEmail map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*store.Account),
		byEmail: make(map[string]string),
	}
}

// FindByEmail returns a copy of the account with the normalized email.
func (s *Store) FindByEmail(_ context.Context, email string) (*store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[store.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// FindByID returns a copy of the account with id.
func (s *Store) FindByID(_ context.Context, id string) (*store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return acct.Clone(), nil
}

// Create assigns an id and creation time when absent and stores acct.
func (s *Store) Create(_ context.Context, acct *store.Account) error {
	acct.Email = store.NormalizeEmail(acct.Email)
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[acct.Email]; exists {
		return store.ErrDuplicate
	}
	if _, exists := s.byID[acct.ID]; exists {
		return store.ErrDuplicate
	}
	s.byID[acct.ID] = acct.Clone()
	s.byEmail[acct.Email] = acct.ID
	return nil
}

// Save replaces the stored copy of an existing account.
func (s *Store) Save(_ context.Context, acct *store.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[acct.ID]
	if !ok {
		return store.ErrNotFound
	}
	email := store.NormalizeEmail(acct.Email)
	if email != prev.Email {
		if _, taken := s.byEmail[email]; taken {
			return store.ErrDuplicate
		}
		delete(s.byEmail, prev.Email)
		s.byEmail[email] = acct.ID
	}
	next := acct.Clone()
	next.Email = email
	s.byID[acct.ID] = next
	return nil
}
