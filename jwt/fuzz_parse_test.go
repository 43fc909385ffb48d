package jwt

import (
	"testing"
)

// FuzzVerifyAccess feeds arbitrary strings to the verifier.
// Goal: no panics, and nothing but the two sentinel errors escapes.
func FuzzVerifyAccess(f *testing.F) {
	mgr, err := NewManager(Config{
		AccessSecret:  []byte("fuzz-access-secret-0123456789abcdef"),
		RefreshSecret: []byte("fuzz-refresh-secret-0123456789abcdef"),
	})
	if err != nil {
		f.Fatal(err)
	}

	pair, err := mgr.IssuePair(Subject{ID: "uid1", Email: "a@b.test", SessionID: "sid1"}, false)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(pair.AccessToken)
	f.Add(pair.RefreshToken)
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ4In0.")

	f.Fuzz(func(t *testing.T, token string) {
		claims, err := mgr.VerifyAccess(token)
		if err != nil {
			if err != ErrTokenInvalid && err != ErrTokenExpired {
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			return
		}
		if claims.SessionID == "" || claims.Subject == "" {
			t.Fatal("accepted token without identity or session")
		}
		_ = mgr.IsNearExpiry(token, 0)
	})
}
