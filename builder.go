package trackauth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/trackauth/internal/rate"
	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/notify"
	"github.com/MrEthical07/trackauth/password"
	"github.com/MrEthical07/trackauth/session"
	"github.com/MrEthical07/trackauth/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. It is single-use: Build may succeed once.
type Builder struct {
	config   Config
	accounts store.Accounts
	sink     notify.Sink
	redis    redis.UniversalClient
	logger   *zap.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAccounts sets the account store. Required.
func (b *Builder) WithAccounts(accounts store.Accounts) *Builder {
	b.accounts = accounts
	return b
}

// WithNotifier sets the sink for reset and verification emails. Without one,
// messages are dropped.
func (b *Builder) WithNotifier(sink notify.Sink) *Builder {
	b.sink = sink
	return b
}

// WithRedis enables the login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Nil falls back to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and wires the Engine. A missing secret
// is fatal; there is no fallback.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, fmt.Errorf("%w: account store is required", ErrInvalidConfiguration)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:    cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret:   cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:       cfg.JWT.AccessTTL,
		RefreshTTL:      cfg.JWT.RefreshTTL,
		RememberMeTTL:   cfg.JWT.RememberMeTTL,
		ResetTTL:        cfg.JWT.ResetTTL,
		VerificationTTL: cfg.JWT.VerificationTTL,
		Issuer:          cfg.JWT.Issuer,
		Audience:        cfg.JWT.Audience,
		Leeway:          cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	hasher, err := password.NewHasher(password.Config{
		Algorithm:     cfg.Password.Algorithm,
		Cost:          cfg.Password.Cost,
		Argon2:        cfg.Password.Argon2,
		MaxConcurrent: cfg.Password.MaxConcurrent,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	var limiter *rate.Limiter
	if b.redis != nil && cfg.Security.MaxLoginAttempts > 0 {
		limiter = rate.New(b.redis, rate.Config{
			Prefix:           cfg.Security.RedisPrefix,
			MaxAttempts:      cfg.Security.MaxLoginAttempts,
			Cooldown:         cfg.Security.LoginCooldown,
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
		})
	}

	engine := &Engine{
		config:   cfg,
		accounts: b.accounts,
		sessions: session.NewStore(b.accounts),
		tokens:   tokens,
		hasher:   hasher,
		limiter:  limiter,
		notifier: notify.NewDispatcher(notify.Config{
			BufferSize:  cfg.Notify.BufferSize,
			DropIfFull:  cfg.Notify.DropIfFull,
			SendTimeout: cfg.Notify.SendTimeout,
		}, b.sink, logger),
		metrics: NewMetrics(cfg.Metrics),
		log:     logger,
	}

	b.built = true
	return engine, nil
}
