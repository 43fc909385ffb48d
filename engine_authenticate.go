package trackauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/trackauth/session"
	"github.com/MrEthical07/trackauth/store"
	"go.uber.org/zap"
)

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// Authenticate resolves the account behind an Authorization header value.
//
// Failures, in the order they are checked: ErrUnauthenticated for a missing
// or non-bearer header, ErrTokenExpired or ErrTokenInvalid from access-token
// verification, ErrAccountNotFound when the account is gone, and
// ErrSessionInvalid when the token's session is no longer the account's
// current one.
func (e *Engine) Authenticate(ctx context.Context, header string) (*store.Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	acct, err := e.authenticate(ctx, header)
	e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))

	if err != nil {
		e.metrics.Inc(MetricAuthenticateFailure)
		return nil, err
	}
	e.metrics.Inc(MetricAuthenticateSuccess)
	return acct, nil
}

func (e *Engine) authenticate(ctx context.Context, header string) (*store.Account, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, ErrUnauthenticated
	}

	claims, err := e.tokens.VerifyAccess(token)
	if err != nil {
		return nil, err
	}

	acct, err := e.sessions.Load(ctx, claims.Identity())
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	if !session.Matches(acct, claims.SessionID) {
		e.metrics.Inc(MetricSessionRejected)
		e.log.Debug("stale session rejected", zap.String("account_id", acct.ID))
		return nil, ErrSessionInvalid
	}

	return publicAccount(acct), nil
}

// AuthenticateOptional is Authenticate for endpoints open to anonymous
// callers. Any failure yields nil.
func (e *Engine) AuthenticateOptional(ctx context.Context, header string) *store.Account {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	acct, err := e.Authenticate(ctx, header)
	if err != nil {
		return nil
	}
	return acct
}
