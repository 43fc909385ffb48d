package trackauth

import (
	"errors"
	"strings"

	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/password"
)

var (
	// ErrInvalidInput reports malformed caller arguments.
	ErrInvalidInput = password.ErrInvalidInput
	// ErrInvalidCredentials is returned by Login for an unknown email and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword is matched by every *WeakPasswordError.
	ErrWeakPassword = errors.New("password too weak")
	// ErrTokenExpired reports a valid token past its expiry; clients may refresh.
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrTokenInvalid reports any other token failure; clients must log in again.
	ErrTokenInvalid = jwt.ErrTokenInvalid
	// ErrSessionInvalid reports a token whose session was rotated or logged out.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrAccountNotFound reports a verified token whose account no longer exists.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUnauthenticated reports a missing or malformed Authorization header.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAccountExists is returned by Register for a taken email.
	ErrAccountExists = errors.New("account already exists")
	// ErrLoginRateLimited is returned by Login once the failed-attempt budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidConfiguration reports settings Build refuses to start with.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// WeakPasswordError carries the strength report for a rejected password.
type WeakPasswordError struct {
	Strength password.Strength
}

// Error lists the failed strength rules.
func (e *WeakPasswordError) Error() string {
	if len(e.Strength.Errors) == 0 {
		return ErrWeakPassword.Error()
	}
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Strength.Errors, "; ")
}

// Is matches ErrWeakPassword.
func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}
