package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/trackauth"
	"github.com/MrEthical07/trackauth/internal/envconfig"
	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/store"
	"github.com/MrEthical07/trackauth/store/memory"
	"github.com/MrEthical07/trackauth/store/redisstore"
)

const loadtestPassword = "L0ad-Test-Passw0rd!"

var loadtestOpts struct {
	accounts    int
	concurrency int
	ops         int
	store       string
	redisAddr   string
}

// accountState holds the live token pair of one seeded account. Refresh
// replaces it, so readers and writers share mu.
type accountState struct {
	mu   sync.Mutex
	pair jwt.Pair
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Measure authenticate and refresh latency against a seeded engine",
	Long: `Seed accounts, log each one in, then run an authenticate phase and a
refresh phase across concurrent workers and report latency percentiles.

With --store redis and no --redis-addr an embedded miniredis is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := loadtestOpts
		if o.accounts <= 0 || o.concurrency <= 0 || o.ops <= 0 {
			return errors.New("accounts, concurrency and ops must be > 0")
		}
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		accounts, cleanup, err := loadtestStore(out, o.store, o.redisAddr)
		if err != nil {
			return err
		}
		defer cleanup()

		cfg := trackauth.DefaultConfig()
		cfg.JWT.AccessSecret = []byte("loadtest-access-secret")
		cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret")
		cfg.Password.Cost = func() int { return bcrypt.MinCost }
		cfg.Metrics.EnableLatencyHistograms = true

		engine, err := trackauth.New().WithConfig(cfg).WithAccounts(accounts).Build()
		if err != nil {
			return err
		}
		defer engine.Close()

		fmt.Fprintf(out, "seeding %d accounts...\n", o.accounts)
		startSeed := time.Now()
		states, err := seedAccounts(ctx, engine, o.accounts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

		authStats := runPhase(o.ops, o.concurrency, states, func(s *accountState) error {
			_, err := engine.Authenticate(ctx, "Bearer "+s.pair.AccessToken)
			return err
		})
		refreshStats := runPhase(o.ops, o.concurrency, states, func(s *accountState) error {
			pair, err := engine.Refresh(ctx, s.pair.RefreshToken)
			if err == nil {
				s.pair = pair
			}
			return err
		})

		fmt.Fprintln(out, "---- results ----")
		printStats(out, "authenticate", authStats)
		printStats(out, "refresh", refreshStats)
		return nil
	},
}

func loadtestStore(out io.Writer, kind, addr string) (store.Accounts, func(), error) {
	switch kind {
	case envconfig.StoreMemory:
		return memory.New(), func() {}, nil
	case envconfig.StoreRedis:
	default:
		return nil, nil, fmt.Errorf("unsupported store %q", kind)
	}

	if addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		fmt.Fprintf(out, "using redis at %s\n", addr)
		return redisstore.New(client, "trackauth-loadtest"), func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return redisstore.New(client, "trackauth-loadtest"), func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seedAccounts(ctx context.Context, engine *trackauth.Engine, n int) ([]accountState, error) {
	states := make([]accountState, n)
	for i := range states {
		email := fmt.Sprintf("applicant-%d@load.test", i)
		if _, err := engine.Register(ctx, trackauth.RegisterRequest{Email: email, Password: loadtestPassword}); err != nil {
			return nil, fmt.Errorf("register %s: %w", email, err)
		}
		res, err := engine.Login(ctx, email, loadtestPassword, false)
		if err != nil {
			return nil, fmt.Errorf("login %s: %w", email, err)
		}
		states[i].pair = res.Tokens
	}
	return states, nil
}

// runPhase spreads ops calls of fn over concurrency workers, each call on a
// random account held under its lock.
func runPhase(ops, concurrency int, states []accountState, fn func(*accountState) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				s := &states[rand.IntN(len(states))]

				s.mu.Lock()
				t0 := time.Now()
				err := fn(s)
				d := time.Since(t0)
				s.mu.Unlock()

				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

// percentile expects samples sorted ascending.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func init() {
	rootCmd.AddCommand(loadtestCmd)
	f := loadtestCmd.Flags()
	f.IntVar(&loadtestOpts.accounts, "accounts", 1000, "Number of accounts to seed")
	f.IntVar(&loadtestOpts.concurrency, "concurrency", 64, "Number of concurrent workers")
	f.IntVar(&loadtestOpts.ops, "ops", 20000, "Operations per phase")
	f.StringVar(&loadtestOpts.store, "store", envconfig.StoreMemory, "Account store: memory or redis")
	f.StringVar(&loadtestOpts.redisAddr, "redis-addr", "", "Redis address; empty starts an embedded miniredis")
}
