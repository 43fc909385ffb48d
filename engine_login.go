package trackauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/trackauth/internal/rate"
	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/session"
	"github.com/MrEthical07/trackauth/store"
	"go.uber.org/zap"
)

// Login checks email and password and starts a new session, replacing any
// session the account already had. An unknown email and a wrong password both
// fail with ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, pw string, rememberMe bool) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email = store.NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if err := e.limiter.Check(ctx, email, ip); err != nil {
		if !errors.Is(err, rate.ErrRateLimited) {
			e.log.Warn("login throttle unavailable", zap.Error(err))
		}
		e.metrics.Inc(MetricLoginRateLimited)
		return nil, ErrLoginRateLimited
	}

	acct, err := e.accounts.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.hasher.Verify(ctx, pw, e.decoy(ctx))
		return nil, e.loginFailed(ctx, email, ip, "")
	case err != nil:
		return nil, fmt.Errorf("load account: %w", err)
	}

	if pw == "" || !e.hasher.Verify(ctx, pw, acct.PasswordHash) {
		return nil, e.loginFailed(ctx, email, ip, acct.ID)
	}

	if e.config.Password.UpgradeOnLogin && e.hasher.NeedsRehash(acct.PasswordHash) {
		if upgraded, err := e.hasher.Hash(ctx, pw); err == nil {
			acct.PasswordHash = upgraded
			e.metrics.Inc(MetricPasswordRehashed)
		} else {
			e.log.Warn("password rehash failed", zap.String("account_id", acct.ID), zap.Error(err))
		}
	}

	acct.LastLoginAt = e.clock()
	if _, err := e.sessions.Rotate(ctx, acct); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	pair, err := e.tokens.IssuePair(subjectOf(acct), rememberMe)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := e.limiter.Reset(ctx, email, ip); err != nil {
		e.log.Warn("login throttle reset failed", zap.Error(err))
	}
	e.metrics.Inc(MetricLoginSuccess)
	e.log.Info("login", zap.String("event", "login_success"), zap.String("account_id", acct.ID))

	return &LoginResult{Account: publicAccount(acct), Tokens: pair}, nil
}

func (e *Engine) loginFailed(ctx context.Context, email, ip, accountID string) error {
	e.metrics.Inc(MetricLoginFailure)
	e.log.Info("login", zap.String("event", "login_failure"), zap.String("account_id", accountID))

	if err := e.limiter.Fail(ctx, email, ip); err != nil {
		e.log.Warn("login throttle update failed", zap.Error(err))
	}
	return ErrInvalidCredentials
}

// Refresh exchanges a refresh token for a new pair and rotates the session, so
// the presented token and every access token of the old session stop working.
//
// Two concurrent refreshes with the same token can both pass the session check
// before either writes; the later write wins and the other pair is revoked by
// it. No compare-and-swap is attempted.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (jwt.Pair, error) {
	if !e.ready() {
		return jwt.Pair{}, ErrEngineNotReady
	}

	claims, err := e.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return jwt.Pair{}, err
	}

	acct, err := e.sessions.Load(ctx, claims.Identity())
	if errors.Is(err, store.ErrNotFound) {
		e.metrics.Inc(MetricRefreshFailure)
		return jwt.Pair{}, ErrSessionInvalid
	}
	if err != nil {
		return jwt.Pair{}, fmt.Errorf("load account: %w", err)
	}

	if !session.Matches(acct, claims.SessionID) {
		e.metrics.Inc(MetricRefreshSessionMismatch)
		e.metrics.Inc(MetricRefreshFailure)
		e.log.Warn("refresh with superseded session",
			zap.String("event", "refresh_session_mismatch"),
			zap.String("account_id", acct.ID),
		)
		return jwt.Pair{}, ErrSessionInvalid
	}

	if _, err := e.sessions.Rotate(ctx, acct); err != nil {
		return jwt.Pair{}, fmt.Errorf("rotate session: %w", err)
	}

	pair, err := e.tokens.IssuePair(subjectOf(acct), claims.RememberMe)
	if err != nil {
		return jwt.Pair{}, fmt.Errorf("issue tokens: %w", err)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	return pair, nil
}

// Logout ends the account's session. It succeeds for accounts that are already
// logged out and for ids that match no account.
func (e *Engine) Logout(ctx context.Context, accountID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	acct, err := e.sessions.Load(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	if err := e.sessions.Clear(ctx, acct); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	e.metrics.Inc(MetricLogout)
	e.log.Info("logout", zap.String("event", "logout"), zap.String("account_id", accountID))
	return nil
}
