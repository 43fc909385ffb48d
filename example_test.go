package trackauth_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/trackauth"
	"github.com/MrEthical07/trackauth/notify"
	"github.com/MrEthical07/trackauth/store/memory"
	"github.com/MrEthical07/trackauth/store/redisstore"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := trackauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("load-from-your-secret-store")
	cfg.JWT.RefreshSecret = []byte("a-different-secret")

	engine, err := trackauth.New().
		WithConfig(cfg).
		WithAccounts(redisstore.New(rdb, "")).
		WithRedis(rdb).
		WithNotifier(notify.NoOpSink{}).
		Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// ExampleEngine_Refresh walks a session through login, refresh and the gate.
func ExampleEngine_Refresh() {
	cfg := trackauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("example-access")
	cfg.JWT.RefreshSecret = []byte("example-refresh")
	cfg.Password.Cost = func() int { return bcrypt.MinCost }

	engine, err := trackauth.New().WithConfig(cfg).WithAccounts(memory.New()).Build()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Close()

	ctx := context.Background()
	_, err = engine.Register(ctx, trackauth.RegisterRequest{Email: "ada@uni.test", Password: "Tr0ub4dor&3xyz"})
	if err != nil {
		fmt.Println(err)
		return
	}

	res, _ := engine.Login(ctx, "ada@uni.test", "Tr0ub4dor&3xyz", false)
	pair, _ := engine.Refresh(ctx, res.Tokens.RefreshToken)

	_, err = engine.Authenticate(ctx, "Bearer "+res.Tokens.AccessToken)
	fmt.Println("old token:", errors.Is(err, trackauth.ErrSessionInvalid))

	acct, _ := engine.Authenticate(ctx, "Bearer "+pair.AccessToken)
	fmt.Println("new token:", acct.Email)
	// Output:
	// old token: true
	// new token: ada@uni.test
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *trackauth.Engine
	snapshot := engine.MetricsSnapshot()
	fmt.Println(snapshot.Counters[trackauth.MetricLoginSuccess])
	// Output: 0
}
