package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired reports a well-formed, correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid reports every other verification failure: bad signature,
	// malformed structure, wrong purpose, audience, issuer or algorithm.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrInvalidConfiguration reports a Manager that cannot be built safely.
	ErrInvalidConfiguration = errors.New("invalid token configuration")
)

// Purpose scopes a token to the one flow it was issued for.
type Purpose string

const (
	PurposeAccess            Purpose = "access"
	PurposeRefresh           Purpose = "refresh"
	PurposePasswordReset     Purpose = "password-reset"
	PurposeEmailVerification Purpose = "email-verification"
)

// RefreshTokenType is the tokenType marker carried by refresh tokens only.
const RefreshTokenType = "refresh"

const (
	DefaultAccessTTL       = 15 * time.Minute
	DefaultRefreshTTL      = 7 * 24 * time.Hour
	DefaultRememberMeTTL   = 30 * 24 * time.Hour
	DefaultResetTTL        = time.Hour
	DefaultVerificationTTL = 24 * time.Hour
	DefaultIssuer          = "trackauth"
	DefaultAudience        = "trackauth"

	maxLeeway    = 2 * time.Minute
	maxFutureIAT = 10 * time.Minute
)

// Config carries the signing secrets and lifetimes. AccessSecret signs access,
// password-reset and email-verification tokens; RefreshSecret signs refresh
// tokens only, so leaking one key cannot mint the other token family.
type Config struct {
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
	// Clock overrides time.Now for issuing and expiry checks.
	Clock func() time.Time
}

// Subject is the account state a token is minted from.
type Subject struct {
	ID        string
	Email     string
	SessionID string
}

// Claims is the payload of every token this package issues. Subject holds the
// account identity; Audience is "<audience>:<purpose>".
type Claims struct {
	Email      string  `json:"email,omitempty"`
	SessionID  string  `json:"sid,omitempty"`
	Purpose    Purpose `json:"purpose"`
	TokenType  string  `json:"tokenType,omitempty"`
	RememberMe bool    `json:"rm,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the account id the token was issued to.
func (c *Claims) Identity() string {
	return c.Subject
}

// Pair is the credential set handed to a client after login or refresh.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Manager signs and verifies all four token purposes.
//
// Manager instances are configured once and then treated as immutable.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg, applies defaults for zero lifetimes, and returns a Manager.
// Missing or identical secrets are rejected; there is no fallback secret.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, fmt.Errorf("%w: access secret is required", ErrInvalidConfiguration)
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, fmt.Errorf("%w: refresh secret is required", ErrInvalidConfiguration)
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, fmt.Errorf("%w: access and refresh secrets must differ", ErrInvalidConfiguration)
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, fmt.Errorf("%w: leeway must be within [0,%s]", ErrInvalidConfiguration, maxLeeway)
	}

	defaults := []struct {
		v   *time.Duration
		def time.Duration
	}{
		{&cfg.AccessTTL, DefaultAccessTTL},
		{&cfg.RefreshTTL, DefaultRefreshTTL},
		{&cfg.RememberMeTTL, DefaultRememberMeTTL},
		{&cfg.ResetTTL, DefaultResetTTL},
		{&cfg.VerificationTTL, DefaultVerificationTTL},
	}
	for _, d := range defaults {
		if *d.v == 0 {
			*d.v = d.def
		}
		if *d.v < 0 {
			return nil, fmt.Errorf("%w: token lifetimes must be positive", ErrInvalidConfiguration)
		}
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.config.AccessTTL
}

// IssuePair signs an access and a refresh token bound to sub.SessionID.
// rememberMe stretches the refresh lifetime to RememberMeTTL.
func (m *Manager) IssuePair(sub Subject, rememberMe bool) (Pair, error) {
	if sub.ID == "" || sub.SessionID == "" {
		return Pair{}, errors.New("token subject requires id and session id")
	}

	access, err := m.sign(PurposeAccess, Claims{
		Email:     sub.Email,
		SessionID: sub.SessionID,
	}, sub.ID, m.config.AccessTTL, m.config.AccessSecret)
	if err != nil {
		return Pair{}, err
	}

	refreshTTL := m.config.RefreshTTL
	if rememberMe {
		refreshTTL = m.config.RememberMeTTL
	}
	refresh, err := m.sign(PurposeRefresh, Claims{
		Email:      sub.Email,
		SessionID:  sub.SessionID,
		TokenType:  RefreshTokenType,
		RememberMe: rememberMe,
	}, sub.ID, refreshTTL, m.config.RefreshSecret)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.config.AccessTTL / time.Second),
	}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, PurposeAccess, m.config.AccessSecret)
}

// VerifyRefresh validates a refresh token. A correctly signed token whose
// tokenType is not "refresh" is rejected as ErrTokenInvalid.
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	claims, err := m.verify(token, PurposeRefresh, m.config.RefreshSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != RefreshTokenType || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// IssueReset signs a password-reset token. It carries no session id.
func (m *Manager) IssueReset(sub Subject) (string, error) {
	return m.sign(PurposePasswordReset, Claims{Email: sub.Email}, sub.ID, m.config.ResetTTL, m.config.AccessSecret)
}

// VerifyReset validates a password-reset token.
func (m *Manager) VerifyReset(token string) (*Claims, error) {
	return m.verify(token, PurposePasswordReset, m.config.AccessSecret)
}

// IssueVerification signs an email-verification token. It carries no session id.
func (m *Manager) IssueVerification(sub Subject) (string, error) {
	return m.sign(PurposeEmailVerification, Claims{Email: sub.Email}, sub.ID, m.config.VerificationTTL, m.config.AccessSecret)
}

// VerifyVerification validates an email-verification token.
func (m *Manager) VerifyVerification(token string) (*Claims, error) {
	return m.verify(token, PurposeEmailVerification, m.config.AccessSecret)
}

// IsNearExpiry decodes token without checking its signature and reports
// whether it expires within buffer. Anything undecodable counts as near
// expiry so clients lean toward refreshing.
func (m *Manager) IsNearExpiry(token string, buffer time.Duration) bool {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !m.now().Add(buffer).Before(claims.ExpiresAt.Time)
}

func (m *Manager) audience(p Purpose) string {
	return m.config.Audience + ":" + string(p)
}

func (m *Manager) sign(p Purpose, claims Claims, subject string, ttl time.Duration, secret []byte) (string, error) {
	if subject == "" {
		return "", errors.New("token subject requires id")
	}
	now := m.now()
	claims.Purpose = p
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    m.config.Issuer,
		Audience:  jwt.ClaimStrings{m.audience(p)},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) verify(token string, p Purpose, secret []byte) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.audience(p)),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}

	claims := &Claims{}
	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenInvalidAudience) || errors.Is(err, jwt.ErrTokenInvalidIssuer) {
			return nil, ErrTokenInvalid
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.Purpose != p || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.now().Add(maxFutureIAT)) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
