package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/trackauth/store"
)

func TestCreateFindSave(t *testing.T) {
	ctx := context.Background()
	s := New()

	acct := &store.Account{Email: "  Student@Uni.TEST ", PasswordHash: "h1"}
	if err := s.Create(ctx, acct); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if acct.ID == "" || acct.CreatedAt.IsZero() {
		t.Fatalf("expected id and created-at to be assigned: %+v", acct)
	}

	got, err := s.FindByEmail(ctx, "STUDENT@uni.test")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != acct.ID || got.Email != "student@uni.test" {
		t.Fatalf("unexpected account: %+v", got)
	}

	got.SessionID = "sid-2"
	got.PasswordHash = "h2"
	if acct.SessionID != "" {
		t.Fatal("caller copy must not alias stored record")
	}
	if err := s.Save(ctx, got); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	again, err := s.FindByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if again.SessionID != "sid-2" || again.PasswordHash != "h2" {
		t.Fatalf("save not persisted: %+v", again)
	}
}

func TestDuplicateAndMissing(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Create(ctx, &store.Account{Email: "a@b.test"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := s.Create(ctx, &store.Account{Email: "A@B.test"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate error = %v", err)
	}
	if _, err := s.FindByEmail(ctx, "ghost@nowhere.test"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing email error = %v", err)
	}
	if _, err := s.FindByID(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing id error = %v", err)
	}
	if err := s.Save(ctx, &store.Account{ID: "nope"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("save missing error = %v", err)
	}
}
