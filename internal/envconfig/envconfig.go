package envconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/trackauth"
	"github.com/MrEthical07/trackauth/password"
)

// Store backends selectable through STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// ErrMissingSecret is returned by Load when a signing secret is unset.
var ErrMissingSecret = errors.New("envconfig: ACCESS_SECRET and REFRESH_SECRET are required")

// Settings is the resolved environment. HashCost stays live: it is read from
// the environment on every call.
type Settings struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	RememberMeTTL   time.Duration
	ResetTTL        time.Duration
	VerificationTTL time.Duration
	Issuer          string

	MaxLoginAttempts int
	LoginCooldown    time.Duration
	IPThrottle       bool

	// TrustProxy makes the HTTP layer read the client address from
	// X-Forwarded-For / X-Real-IP. Leave it off unless a proxy sets them.
	TrustProxy bool

	HTTPAddr    string
	Store       string
	RedisAddr   string
	DatabaseURL string
	LogLevel    string
	AppEnv      string

	v *viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("access_ttl", "15m")
	v.SetDefault("refresh_ttl", "7d")
	v.SetDefault("remember_me_ttl", "30d")
	v.SetDefault("reset_ttl", "1h")
	v.SetDefault("verification_ttl", "24h")
	v.SetDefault("hash_cost", password.DefaultCost)
	v.SetDefault("token_issuer", "trackauth")
	v.SetDefault("max_login_attempts", 5)
	v.SetDefault("login_cooldown", "15m")
	v.SetDefault("ip_throttle", false)
	v.SetDefault("trust_proxy", false)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("log_level", "info")
	v.SetDefault("app_env", "development")
}

// Load reads the environment. Missing secrets abort with ErrMissingSecret.
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	s := &Settings{
		AccessSecret:     v.GetString("access_secret"),
		RefreshSecret:    v.GetString("refresh_secret"),
		Issuer:           v.GetString("token_issuer"),
		MaxLoginAttempts: v.GetInt("max_login_attempts"),
		IPThrottle:       v.GetBool("ip_throttle"),
		TrustProxy:       v.GetBool("trust_proxy"),
		HTTPAddr:         v.GetString("http_addr"),
		Store:            strings.ToLower(v.GetString("store")),
		RedisAddr:        v.GetString("redis_addr"),
		DatabaseURL:      v.GetString("database_url"),
		LogLevel:         v.GetString("log_level"),
		AppEnv:           strings.ToLower(v.GetString("app_env")),
		v:                v,
	}
	if s.AccessSecret == "" || s.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"access_ttl", &s.AccessTTL},
		{"refresh_ttl", &s.RefreshTTL},
		{"remember_me_ttl", &s.RememberMeTTL},
		{"reset_ttl", &s.ResetTTL},
		{"verification_ttl", &s.VerificationTTL},
		{"login_cooldown", &s.LoginCooldown},
	}
	for _, d := range durations {
		parsed, err := ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.ToUpper(d.key), err)
		}
		*d.dst = parsed
	}

	switch s.Store {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return nil, fmt.Errorf("STORE: unknown backend %q", s.Store)
	}
	if s.Store == StorePostgres && s.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres store")
	}

	return s, nil
}

// HashCost returns the current HASH_COST, falling back to the default when
// the value is unset or outside the bcrypt range.
func (s *Settings) HashCost() int {
	cost := s.v.GetInt("hash_cost")
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return password.DefaultCost
	}
	return cost
}

// Production reports whether APP_ENV is production.
func (s *Settings) Production() bool {
	return s.AppEnv == "production"
}

// EngineConfig maps the settings onto a trackauth.Config.
func (s *Settings) EngineConfig() trackauth.Config {
	cfg := trackauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(s.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(s.RefreshSecret)
	cfg.JWT.AccessTTL = s.AccessTTL
	cfg.JWT.RefreshTTL = s.RefreshTTL
	cfg.JWT.RememberMeTTL = s.RememberMeTTL
	cfg.JWT.ResetTTL = s.ResetTTL
	cfg.JWT.VerificationTTL = s.VerificationTTL
	cfg.JWT.Issuer = s.Issuer
	cfg.Password.Cost = s.HashCost
	cfg.Security.MaxLoginAttempts = s.MaxLoginAttempts
	cfg.Security.LoginCooldown = s.LoginCooldown
	cfg.Security.EnableIPThrottle = s.IPThrottle
	return cfg
}

// ParseDuration accepts Go duration syntax plus a whole-day "d" suffix
// ("7d"). A bare integer is read as seconds.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.New("empty duration")
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}
