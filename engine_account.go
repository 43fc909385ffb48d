package trackauth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/store"
	"go.uber.org/zap"
)

// RegisterRequest is the input to Register.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account and queues an email-verification message. It
// does not log the account in.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*store.Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email := store.NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, fmt.Errorf("%w: email address is malformed", ErrInvalidInput)
	}

	acct := &store.Account{
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := checkStrength(req.Password, acct); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, err
	}
	acct.PasswordHash = hash
	acct.LastPasswordChangeAt = e.clock()

	if err := e.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.metrics.Inc(MetricRegisterDuplicate)
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.log.Info("account registered", zap.String("event", "register"), zap.String("account_id", acct.ID))

	if err := e.sendVerification(ctx, acct); err != nil {
		e.log.Warn("verification token not issued", zap.String("account_id", acct.ID), zap.Error(err))
	}

	return publicAccount(acct), nil
}

// ChangePassword replaces the password of a logged-in account after checking
// the current one. The session rotates, so other devices are logged out; the
// returned pair keeps the caller signed in.
func (e *Engine) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) (jwt.Pair, error) {
	if !e.ready() {
		return jwt.Pair{}, ErrEngineNotReady
	}

	acct, err := e.accounts.FindByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return jwt.Pair{}, ErrAccountNotFound
	}
	if err != nil {
		return jwt.Pair{}, fmt.Errorf("load account: %w", err)
	}

	if !e.hasher.Verify(ctx, oldPassword, acct.PasswordHash) {
		e.metrics.Inc(MetricPasswordChangeInvalidOld)
		return jwt.Pair{}, ErrInvalidCredentials
	}
	if err := checkStrength(newPassword, acct); err != nil {
		return jwt.Pair{}, err
	}
	if newPassword == oldPassword {
		weak := &WeakPasswordError{}
		weak.Strength.Errors = []string{"new password must differ from the current password"}
		return jwt.Pair{}, weak
	}

	if err := e.setPassword(ctx, acct, newPassword); err != nil {
		return jwt.Pair{}, err
	}

	pair, err := e.tokens.IssuePair(subjectOf(acct), false)
	if err != nil {
		return jwt.Pair{}, fmt.Errorf("issue tokens: %w", err)
	}

	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.log.Info("password changed", zap.String("event", "password_change"), zap.String("account_id", acct.ID))
	return pair, nil
}

// setPassword hashes pw onto acct and rotates its session in a single save.
func (e *Engine) setPassword(ctx context.Context, acct *store.Account, pw string) error {
	hash, err := e.hasher.Hash(ctx, pw)
	if err != nil {
		return err
	}

	prevHash, prevChanged := acct.PasswordHash, acct.LastPasswordChangeAt
	acct.PasswordHash = hash
	acct.LastPasswordChangeAt = e.clock()
	if _, err := e.sessions.Rotate(ctx, acct); err != nil {
		acct.PasswordHash, acct.LastPasswordChangeAt = prevHash, prevChanged
		return fmt.Errorf("save password: %w", err)
	}
	return nil
}
