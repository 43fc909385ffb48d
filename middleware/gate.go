package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/trackauth"
	"github.com/MrEthical07/trackauth/store"
)

// Authenticator is the gate surface of *trackauth.Engine.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*store.Account, error)
}

// Error codes returned in the JSON body of a rejected request.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeTokenExpired    = "token_expired"
	CodeTokenInvalid    = "token_invalid"
	CodeAccountNotFound = "account_not_found"
	CodeSessionInvalid  = "session_invalid"
	CodeInternal        = "internal_error"
)

type accountContextKey struct{}

// AccountFromContext returns the account attached by Require or Optional.
func AccountFromContext(ctx context.Context) (*store.Account, bool) {
	acct, ok := ctx.Value(accountContextKey{}).(*store.Account)
	return acct, ok && acct != nil
}

// WithAccount returns a copy of ctx carrying acct.
func WithAccount(ctx context.Context, acct *store.Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, acct)
}

// Require admits only requests whose bearer token maps to a current session.
func Require(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				WriteError(w, trackauth.ErrEngineNotReady)
				return
			}

			acct, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acct)))
		})
	}
}

// Optional attaches the account when the header resolves and otherwise
// passes the request on untouched.
func Optional(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if auth == nil || header == "" {
				next.ServeHTTP(w, r)
				return
			}

			acct, err := auth.Authenticate(r.Context(), header)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acct)))
		})
	}
}

// Code maps a gate error to its stable client-facing code and HTTP status.
func Code(err error) (string, int) {
	switch {
	case errors.Is(err, trackauth.ErrUnauthenticated):
		return CodeUnauthenticated, http.StatusUnauthorized
	case errors.Is(err, trackauth.ErrTokenExpired):
		return CodeTokenExpired, http.StatusUnauthorized
	case errors.Is(err, trackauth.ErrTokenInvalid):
		return CodeTokenInvalid, http.StatusUnauthorized
	case errors.Is(err, trackauth.ErrAccountNotFound):
		return CodeAccountNotFound, http.StatusUnauthorized
	case errors.Is(err, trackauth.ErrSessionInvalid):
		return CodeSessionInvalid, http.StatusUnauthorized
	default:
		return CodeInternal, http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// WriteError renders a gate error as {"error": "<code>"}.
func WriteError(w http.ResponseWriter, err error) {
	code, status := Code(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code})
}
