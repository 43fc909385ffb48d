package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/trackauth"
	"github.com/MrEthical07/trackauth/store"
)

type stubAuth struct {
	acct *store.Account
	err  error
}

func (s stubAuth) Authenticate(context.Context, string) (*store.Account, error) {
	return s.acct, s.err
}

func echoAccount() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, ok := AccountFromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(acct.ID))
	})
}

func serve(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmits(t *testing.T) {
	h := Require(stubAuth{acct: &store.Account{ID: "acct-1"}})(echoAccount())

	rec := serve(h, "Bearer ok")
	if rec.Code != http.StatusOK || rec.Body.String() != "acct-1" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestRequireRejectsWithDistinctCodes(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{trackauth.ErrUnauthenticated, CodeUnauthenticated, http.StatusUnauthorized},
		{trackauth.ErrTokenExpired, CodeTokenExpired, http.StatusUnauthorized},
		{trackauth.ErrTokenInvalid, CodeTokenInvalid, http.StatusUnauthorized},
		{trackauth.ErrAccountNotFound, CodeAccountNotFound, http.StatusUnauthorized},
		{trackauth.ErrSessionInvalid, CodeSessionInvalid, http.StatusUnauthorized},
		{fmt.Errorf("load account: %w", context.DeadlineExceeded), CodeInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := serve(Require(stubAuth{err: c.err})(echoAccount()), "Bearer x")
		if rec.Code != c.status {
			t.Fatalf("%v: status = %d, want %d", c.err, rec.Code, c.status)
		}
		var body errorBody
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Error != c.code {
			t.Fatalf("%v: code = %q, want %q", c.err, body.Error, c.code)
		}
	}
}

func TestRequireWithoutEngine(t *testing.T) {
	rec := serve(Require(nil)(echoAccount()), "Bearer x")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestOptionalSwallowsFailures(t *testing.T) {
	failing := Optional(stubAuth{err: trackauth.ErrSessionInvalid})(echoAccount())
	if rec := serve(failing, "Bearer stale"); rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
	if rec := serve(failing, ""); rec.Body.String() != "anonymous" {
		t.Fatalf("body = %q", rec.Body.String())
	}

	ok := Optional(stubAuth{acct: &store.Account{ID: "acct-2"}})(echoAccount())
	if rec := serve(ok, "Bearer good"); rec.Body.String() != "acct-2" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
