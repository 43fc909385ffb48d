package trackauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/trackauth/notify"
	"github.com/MrEthical07/trackauth/store"
	"go.uber.org/zap"
)

// RequestPasswordReset queues a reset token for email if an account exists.
// It reports nothing back, so callers cannot learn whether the email is
// registered.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) {
	if !e.ready() {
		return
	}
	e.metrics.Inc(MetricPasswordResetRequest)

	acct, err := e.accounts.FindByEmail(ctx, store.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.log.Warn("password reset lookup failed", zap.Error(err))
		}
		return
	}

	token, err := e.tokens.IssueReset(subjectOf(acct))
	if err != nil {
		e.log.Error("password reset token not issued", zap.String("account_id", acct.ID), zap.Error(err))
		return
	}
	e.enqueue(ctx, notify.TemplatePasswordReset, acct.Email, token)
	e.log.Info("password reset requested", zap.String("event", "password_reset_request"), zap.String("account_id", acct.ID))
}

// ResetPassword sets a new password using a reset token and rotates the
// session, logging out every device.
//
// A reset token stays usable until it expires, even after a successful reset.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.VerifyReset(resetToken)
	if err != nil {
		e.metrics.Inc(MetricPasswordResetFailure)
		return err
	}

	acct, err := e.accounts.FindByID(ctx, claims.Identity())
	if errors.Is(err, store.ErrNotFound) {
		e.metrics.Inc(MetricPasswordResetFailure)
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if claims.Email != acct.Email {
		e.metrics.Inc(MetricPasswordResetFailure)
		return ErrTokenInvalid
	}

	if err := checkStrength(newPassword, acct); err != nil {
		e.metrics.Inc(MetricPasswordResetFailure)
		return err
	}
	if err := e.setPassword(ctx, acct, newPassword); err != nil {
		return err
	}

	e.metrics.Inc(MetricPasswordResetSuccess)
	e.log.Info("password reset", zap.String("event", "password_reset"), zap.String("account_id", acct.ID))
	return nil
}
