package httpapi

import (
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/trackauth"
	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/middleware"
	"github.com/MrEthical07/trackauth/store"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ForgotPasswordRequest is the body of POST /auth/password/forgot.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/password/reset.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of POST /auth/password/change.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// VerifyEmailRequest is the body of POST /auth/email/verify.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// AccountResponse is the public view of an account. It never carries the
// password hash or session id.
type AccountResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
}

// LoginResponse is the body returned by POST /auth/login.
type LoginResponse struct {
	Account AccountResponse `json:"account"`
	jwt.Pair
}

func accountResponse(acct *store.Account) AccountResponse {
	resp := AccountResponse{
		ID:            acct.ID,
		Email:         acct.Email,
		FirstName:     acct.FirstName,
		LastName:      acct.LastName,
		EmailVerified: acct.EmailVerified,
		CreatedAt:     acct.CreatedAt,
	}
	if !acct.LastLoginAt.IsZero() {
		t := acct.LastLoginAt
		resp.LastLoginAt = &t
	}
	return resp
}

// Register handles POST /auth/register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[RegisterRequest](w, r)
	if !ok {
		return
	}
	acct, err := a.engine.Register(r.Context(), trackauth.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse(acct))
}

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r)
	if !ok {
		return
	}
	ctx := trackauth.WithClientIP(r.Context(), clientIP(r))
	res, err := a.engine.Login(ctx, req.Email, req.Password, req.RememberMe)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Account: accountResponse(res.Account), Pair: res.Tokens})
}

// Refresh handles POST /auth/refresh.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[RefreshRequest](w, r)
	if !ok {
		return
	}
	pair, err := a.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout handles POST /auth/logout.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFromContext(r.Context())
	if err := a.engine.Logout(r.Context(), acct.ID); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword handles POST /auth/password/forgot. The reply is the same
// whether or not the email is registered.
func (a *API) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ForgotPasswordRequest](w, r)
	if !ok {
		return
	}
	a.engine.RequestPasswordReset(r.Context(), req.Email)
	w.WriteHeader(http.StatusAccepted)
}

// ResetPassword handles POST /auth/password/reset.
func (a *API) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ResetPasswordRequest](w, r)
	if !ok {
		return
	}
	if err := a.engine.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword handles POST /auth/password/change.
func (a *API) ChangePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ChangePasswordRequest](w, r)
	if !ok {
		return
	}
	acct, _ := middleware.AccountFromContext(r.Context())
	pair, err := a.engine.ChangePassword(r.Context(), acct.ID, req.OldPassword, req.NewPassword)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// VerifyEmail handles POST /auth/email/verify.
func (a *API) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[VerifyEmailRequest](w, r)
	if !ok {
		return
	}
	if err := a.engine.VerifyEmail(r.Context(), req.Token); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResendVerification handles POST /auth/email/resend.
func (a *API) ResendVerification(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFromContext(r.Context())
	if err := a.engine.RequestEmailVerification(r.Context(), acct.ID); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Me handles GET /me.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFromContext(r.Context())
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

// clientIP returns the host part of RemoteAddr. With WithTrustedProxy, chi's
// RealIP has already replaced it with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
