package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MrEthical07/trackauth"
	"github.com/MrEthical07/trackauth/middleware"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, ErrorResponse{Error: code})
}

// mapError translates engine errors to status codes. Unknown errors are
// logged and reported as internal_error without their text.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	var weak *trackauth.WeakPasswordError
	switch {
	case errors.As(err, &weak):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "weak_password", Problems: weak.Strength.Errors})
	case errors.Is(err, trackauth.ErrWeakPassword):
		writeError(w, http.StatusUnprocessableEntity, "weak_password")
	case errors.Is(err, trackauth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input")
	case errors.Is(err, trackauth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, trackauth.ErrAccountExists):
		writeError(w, http.StatusConflict, "account_exists")
	case errors.Is(err, trackauth.ErrLoginRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited")
	case errors.Is(err, trackauth.ErrEngineNotReady):
		writeError(w, http.StatusServiceUnavailable, "unavailable")
	default:
		code, status := middleware.Code(err)
		if status == http.StatusInternalServerError {
			a.log.Error("request failed",
				zap.String("route", r.URL.Path),
				zap.Error(err),
			)
		}
		writeError(w, status, code)
	}
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return v, false
	}
	return v, true
}
