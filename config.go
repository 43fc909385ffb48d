package trackauth

import (
	"fmt"
	"time"

	"github.com/MrEthical07/trackauth/jwt"
	"github.com/MrEthical07/trackauth/password"
)

// Config is the full Engine configuration. Build it with DefaultConfig and
// override fields; secrets have no defaults.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Security SecurityConfig
	Notify   NotifyConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds signing secrets and token lifetimes.
type JWTConfig struct {
	AccessSecret    []byte
	RefreshSecret   []byte
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RememberMeTTL   time.Duration
	ResetTTL        time.Duration
	VerificationTTL time.Duration
	Issuer          string
	Audience        string
	Leeway          time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm and work factor.
//
// Cost is called on every hash, so returning a live value (for example an
// environment lookup) retunes hashing without a restart.
type PasswordConfig struct {
	Algorithm      password.Algorithm
	Cost           func() int
	Argon2         password.Argon2Params
	MaxConcurrent  int
	UpgradeOnLogin bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig tunes login throttling. Throttling is active only when a
// Redis client is supplied to the Builder and MaxLoginAttempts > 0.
type SecurityConfig struct {
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	EnableIPThrottle bool
	RedisPrefix      string
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig sizes the async notification buffer. SendTimeout bounds each
// sink delivery; zero uses notify.DefaultSendTimeout.
type NotifyConfig struct {
	BufferSize  int
	DropIfFull  bool
	SendTimeout time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig switches the in-process counters and the authentication
// latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults with empty secrets.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:       jwt.DefaultAccessTTL,
			RefreshTTL:      jwt.DefaultRefreshTTL,
			RememberMeTTL:   jwt.DefaultRememberMeTTL,
			ResetTTL:        jwt.DefaultResetTTL,
			VerificationTTL: jwt.DefaultVerificationTTL,
			Issuer:          jwt.DefaultIssuer,
			Audience:        jwt.DefaultAudience,
		},
		Password: PasswordConfig{
			Algorithm:      password.AlgorithmBcrypt,
			Cost:           func() int { return password.DefaultCost },
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			MaxLoginAttempts: 5,
			LoginCooldown:    15 * time.Minute,
			RedisPrefix:      "trackauth",
		},
		Notify: NotifyConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first setting Build would refuse. Secret checks come
// first so a missing secret is always the reported cause.
func (c *Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 {
		return fmt.Errorf("%w: access secret is required", ErrInvalidConfiguration)
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return fmt.Errorf("%w: refresh secret is required", ErrInvalidConfiguration)
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrInvalidConfiguration)
	}
	ttls := []struct {
		name string
		ttl  time.Duration
	}{
		{"access", c.JWT.AccessTTL},
		{"refresh", c.JWT.RefreshTTL},
		{"remember-me", c.JWT.RememberMeTTL},
		{"reset", c.JWT.ResetTTL},
		{"verification", c.JWT.VerificationTTL},
	}
	for _, t := range ttls {
		if t.ttl <= 0 {
			return fmt.Errorf("%w: %s ttl must be positive", ErrInvalidConfiguration, t.name)
		}
	}
	if c.JWT.RememberMeTTL < c.JWT.RefreshTTL {
		return fmt.Errorf("%w: remember-me ttl must not be shorter than refresh ttl", ErrInvalidConfiguration)
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return fmt.Errorf("%w: access ttl must be shorter than refresh ttl", ErrInvalidConfiguration)
	}
	if c.Security.MaxLoginAttempts < 0 || c.Security.LoginCooldown < 0 {
		return fmt.Errorf("%w: login throttle settings must not be negative", ErrInvalidConfiguration)
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldown == 0 {
		return fmt.Errorf("%w: login cooldown is required when attempts are limited", ErrInvalidConfiguration)
	}
	if c.Notify.BufferSize < 0 || c.Notify.SendTimeout < 0 {
		return fmt.Errorf("%w: notify settings must not be negative", ErrInvalidConfiguration)
	}
	return nil
}
