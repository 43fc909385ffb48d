package trackauth

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/notify"
	"github.com/MrEthical07/trackauth/store"
	"github.com/MrEthical07/trackauth/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "student@uni.test"
	testPassword = "Tr0ub4dor&3xyz"
	newPassword  = "N3w-Secure-Pass!"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret")
	cfg.Password.Cost = func() int { return bcrypt.MinCost }
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestEngineDeps() (*memory.Store, *notify.ChannelSink) {
	return memory.New(), notify.NewChannelSink(32)
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *memory.Store, *notify.ChannelSink) {
	t.Helper()

	accounts, sink := newTestEngineDeps()
	engine, err := New().
		WithConfig(cfg).
		WithAccounts(accounts).
		WithNotifier(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, accounts, sink
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// withClock swaps the engine's token manager for one driven by *now.
func withClock(t *testing.T, e *Engine, now *time.Time) {
	t.Helper()

	m, err := jwt.NewManager(jwt.Config{
		AccessSecret:  e.config.JWT.AccessSecret,
		RefreshSecret: e.config.JWT.RefreshSecret,
		AccessTTL:     e.config.JWT.AccessTTL,
		RefreshTTL:    e.config.JWT.RefreshTTL,
		Clock:         func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	e.tokens = m
}

func registerStudent(t *testing.T, e *Engine, sink *notify.ChannelSink) *store.Account {
	t.Helper()

	acct, err := e.Register(context.Background(), RegisterRequest{
		Email:     testEmail,
		Password:  testPassword,
		FirstName: "Maria",
		LastName:  "Lopez",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	// Drain the verification email so tests see only what they trigger.
	waitMessage(t, sink, notify.TemplateEmailVerification)
	return acct
}

func login(t *testing.T, e *Engine) *LoginResult {
	t.Helper()

	res, err := e.Login(context.Background(), testEmail, testPassword, false)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return res
}

func bearer(token string) string {
	return "Bearer " + token
}

func waitMessage(t *testing.T, sink *notify.ChannelSink, template string) notify.Message {
	t.Helper()

	for {
		select {
		case msg := <-sink.Messages():
			if msg.TemplateID == template {
				return msg
			}
		case <-time.After(time.Second):
			t.Fatalf("no %s message delivered", template)
		}
	}
}

func expectNoMessage(t *testing.T, sink *notify.ChannelSink) {
	t.Helper()

	select {
	case msg := <-sink.Messages():
		t.Fatalf("unexpected %s message to %s", msg.TemplateID, msg.Recipient)
	case <-time.After(50 * time.Millisecond):
	}
}
