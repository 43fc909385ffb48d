package session

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/trackauth/store"
	"github.com/MrEthical07/trackauth/store/memory"
)

type failingSave struct {
	store.Accounts
}

func (failingSave) Save(context.Context, *store.Account) error {
	return errors.New("write failed")
}

func newAccount(t *testing.T, accounts store.Accounts) *store.Account {
	t.Helper()
	acct := &store.Account{Email: "s@uni.test", PasswordHash: "h"}
	if err := accounts.Create(context.Background(), acct); err != nil {
		t.Fatalf("create: %v", err)
	}
	return acct
}

func TestNewIDIsRandom(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID error: %v", err)
		}
		if len(id) != 22 {
			t.Fatalf("id length = %d", len(id))
		}
		if seen[id] {
			t.Fatal("duplicate session id")
		}
		seen[id] = true
	}
}

func TestRotateReplacesAndPersists(t *testing.T) {
	ctx := context.Background()
	accounts := memory.New()
	s := NewStore(accounts)
	acct := newAccount(t, accounts)

	first, err := s.Rotate(ctx, acct)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	second, err := s.Rotate(ctx, acct)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if first == second {
		t.Fatal("rotation must produce a new id")
	}

	stored, err := s.Load(ctx, acct.ID)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !Matches(stored, second) || Matches(stored, first) {
		t.Fatal("only the latest session id may match")
	}
}

func TestRotateKeepsPreviousOnSaveFailure(t *testing.T) {
	accounts := memory.New()
	acct := newAccount(t, accounts)
	acct.SessionID = "old"

	s := NewStore(failingSave{accounts})
	if _, err := s.Rotate(context.Background(), acct); err == nil {
		t.Fatal("expected save failure")
	}
	if acct.SessionID != "old" {
		t.Fatalf("session id = %q, want old", acct.SessionID)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	accounts := memory.New()
	s := NewStore(accounts)
	acct := newAccount(t, accounts)

	sid, err := s.Rotate(ctx, acct)
	if err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if err := s.Clear(ctx, acct); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if err := s.Clear(ctx, acct); err != nil {
		t.Fatalf("second Clear error: %v", err)
	}

	stored, _ := s.Load(ctx, acct.ID)
	if stored.SessionID != "" || Matches(stored, sid) {
		t.Fatal("expected no active session")
	}
	// A failing backend is never touched when there is nothing to clear.
	if err := NewStore(failingSave{accounts}).Clear(ctx, stored); err != nil {
		t.Fatalf("no-op Clear error: %v", err)
	}
}

func TestMatches(t *testing.T) {
	acct := &store.Account{SessionID: "abc"}
	cases := []struct {
		acct *store.Account
		sid  string
		want bool
	}{
		{acct, "abc", true},
		{acct, "abd", false},
		{acct, "", false},
		{&store.Account{}, "", false},
		{nil, "abc", false},
	}
	for _, c := range cases {
		if got := Matches(c.acct, c.sid); got != c.want {
			t.Fatalf("Matches(%+v, %q) = %v", c.acct, c.sid, got)
		}
	}
}
