package trackauth

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/trackauth/internal/rate"
	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/notify"
	"github.com/MrEthical07/trackauth/password"
	"github.com/MrEthical07/trackauth/session"
	"github.com/MrEthical07/trackauth/store"
	"go.uber.org/zap"
)

// Engine runs every credential and session flow. Methods are safe for
// concurrent use once Build returns.
type Engine struct {
	config   Config
	accounts store.Accounts
	sessions *session.Store
	tokens   *jwt.Manager
	hasher   *password.Hasher
	limiter  *rate.Limiter
	notifier *notify.Dispatcher
	metrics  *Metrics
	log      *zap.Logger
	now      func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

// LoginResult is returned by Login. Account never carries the password hash.
type LoginResult struct {
	Account *store.Account
	Tokens  jwt.Pair
}

// Close drains queued notifications. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.notifier.Close()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// NotificationsDropped counts reset and verification emails lost to a full buffer.
func (e *Engine) NotificationsDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.notifier.Dropped()
}

// AccessTTL reports the access-token lifetime, for clients that schedule refreshes.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil || e.tokens == nil {
		return 0
	}
	return e.tokens.AccessTTL()
}

// TokenNearExpiry reports whether token expires within buffer. The signature
// is not checked; anything undecodable counts as near expiry.
func (e *Engine) TokenNearExpiry(token string, buffer time.Duration) bool {
	if e == nil || e.tokens == nil {
		return true
	}
	return e.tokens.IsNearExpiry(token, buffer)
}

func (e *Engine) ready() bool {
	return e != nil && e.tokens != nil && e.accounts != nil
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) enqueue(ctx context.Context, template, recipient, token string) {
	e.notifier.Enqueue(ctx, notify.Message{
		TemplateID: template,
		Recipient:  recipient,
		Data:       map[string]string{"token": token},
		QueuedAt:   e.clock(),
	})
}

// checkStrength scores pw against the account details and wraps a failure
// in *WeakPasswordError.
func checkStrength(pw string, acct *store.Account) error {
	s := password.Score(pw, password.Context{
		Email:     acct.Email,
		FirstName: acct.FirstName,
		LastName:  acct.LastName,
	})
	if !s.Valid {
		return &WeakPasswordError{Strength: s}
	}
	return nil
}

// decoy returns a hash that never matches, so unknown-email logins spend the
// same hashing time as real ones.
func (e *Engine) decoy(ctx context.Context) string {
	e.decoyOnce.Do(func() {
		token, err := session.NewID()
		if err != nil {
			return
		}
		h, err := e.hasher.Hash(context.WithoutCancel(ctx), "decoy-"+token)
		if err != nil {
			return
		}
		e.decoyHash = h
	})
	return e.decoyHash
}

func subjectOf(acct *store.Account) jwt.Subject {
	return jwt.Subject{ID: acct.ID, Email: acct.Email, SessionID: acct.SessionID}
}

func publicAccount(acct *store.Account) *store.Account {
	out := acct.Clone()
	out.PasswordHash = ""
	return out
}
