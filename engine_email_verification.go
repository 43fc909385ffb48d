package trackauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/trackauth/notify"
	"github.com/MrEthical07/trackauth/store"
	"go.uber.org/zap"
)

// RequestEmailVerification queues a fresh verification token. Verified
// accounts are left alone.
func (e *Engine) RequestEmailVerification(ctx context.Context, accountID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	acct, err := e.accounts.FindByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acct.EmailVerified {
		return nil
	}
	return e.sendVerification(ctx, acct)
}

func (e *Engine) sendVerification(ctx context.Context, acct *store.Account) error {
	token, err := e.tokens.IssueVerification(subjectOf(acct))
	if err != nil {
		return err
	}
	e.enqueue(ctx, notify.TemplateEmailVerification, acct.Email, token)
	e.metrics.Inc(MetricEmailVerificationRequest)
	return nil
}

// VerifyEmail marks the token's account as verified. Verifying twice is not an
// error.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.VerifyVerification(token)
	if err != nil {
		e.metrics.Inc(MetricEmailVerificationFailure)
		return err
	}

	acct, err := e.accounts.FindByID(ctx, claims.Identity())
	if errors.Is(err, store.ErrNotFound) {
		e.metrics.Inc(MetricEmailVerificationFailure)
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if claims.Email != acct.Email {
		e.metrics.Inc(MetricEmailVerificationFailure)
		return ErrTokenInvalid
	}
	if acct.EmailVerified {
		return nil
	}

	acct.EmailVerified = true
	if err := e.accounts.Save(ctx, acct); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	e.metrics.Inc(MetricEmailVerificationSuccess)
	e.log.Info("email verified", zap.String("event", "email_verified"), zap.String("account_id", acct.ID))
	return nil
}
