package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited reports an exhausted attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable wraps Redis failures.
	ErrUnavailable = errors.New("rate limiter backend unavailable")
)

// DefaultPrefix namespaces limiter keys when Config.Prefix is empty.
const DefaultPrefix = "trackauth"

// Config tunes the login throttle.
type Config struct {
	Prefix           string
	MaxAttempts      int
	Cooldown         time.Duration
	EnableIPThrottle bool
}

// Limiter counts failed logins in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a Limiter. A zero MaxAttempts or Cooldown yields a limiter that
// never blocks.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Limiter{redis: client, config: cfg}
}

func (l *Limiter) active() bool {
	return l != nil && l.redis != nil && l.config.MaxAttempts > 0 && l.config.Cooldown > 0
}

// Check fails with ErrRateLimited once the email or address has used up its
// budget for the current window. It does not count an attempt.
func (l *Limiter) Check(ctx context.Context, email, ip string) error {
	if !l.active() {
		return nil
	}
	for _, key := range l.keys(email, ip) {
		n, err := l.redis.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n >= int64(l.config.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// Fail records one failed attempt.
func (l *Limiter) Fail(ctx context.Context, email, ip string) error {
	if !l.active() {
		return nil
	}
	for _, key := range l.keys(email, ip) {
		n, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n == 1 {
			if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, email, ip string) error {
	if !l.active() {
		return nil
	}
	if err := l.redis.Del(ctx, l.keys(email, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Attempts returns the failed-attempt count for email in the current window.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	if !l.active() {
		return 0, nil
	}
	n, err := l.redis.Get(ctx, l.emailKey(email)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{l.emailKey(email)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.config.Prefix+":login-ip:"+ip)
	}
	return keys
}

func (l *Limiter) emailKey(email string) string {
	return l.config.Prefix + ":login:" + email
}
