package password

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrInvalidInput reports an empty or over-long password handed to Hash.
	ErrInvalidInput = errors.New("invalid password input")
	// ErrInvalidConfiguration reports unusable hashing or generation settings.
	ErrInvalidConfiguration = errors.New("invalid password configuration")
)

const (
	// MinLength is the shortest password the strength rules accept.
	MinLength = 8
	// MaxLength is the longest password, in characters, any operation accepts.
	MaxLength = 128
	// DefaultCost is the bcrypt work factor used when no cost source is configured.
	DefaultCost = 12

	bcryptMaxBytes = 72

	// prehashPrefix tags bcrypt hashes whose input was an HMAC-SHA256 digest
	// of the password rather than the password itself.
	prehashPrefix = "$bcrypt-sha256$"
	prehashKey    = "trackauth/bcrypt-sha256/v1"
)

// Algorithm selects the one-way function used by Hash.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Config configures a Hasher.
//
// Cost is consulted on every Hash and NeedsRehash call rather than captured at
// construction, so the work factor follows live configuration.
type Config struct {
	Algorithm     Algorithm
	Cost          func() int
	Argon2        Argon2Params
	MaxConcurrent int
}

// Hasher hashes and verifies passwords. CPU-heavy work runs under a weighted
// semaphore so at most MaxConcurrent hashes execute at once; waiting callers
// give up when their context is cancelled.
type Hasher struct {
	cfg Config
	sem *semaphore.Weighted
}

// NewHasher validates cfg and returns a ready Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmBcrypt
	}
	if cfg.Cost == nil {
		cfg.Cost = func() int { return DefaultCost }
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = runtime.GOMAXPROCS(0)
	}

	switch cfg.Algorithm {
	case AlgorithmBcrypt:
		if err := checkCost(cfg.Cost()); err != nil {
			return nil, err
		}
	case AlgorithmArgon2id:
		if cfg.Argon2 == (Argon2Params{}) {
			cfg.Argon2 = DefaultArgon2Params()
		}
		if err := cfg.Argon2.validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidConfiguration, cfg.Algorithm)
	}

	return &Hasher{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}, nil
}

// Hash returns a salted one-way hash of password. It fails with ErrInvalidInput
// when password is empty or longer than MaxLength characters, and with the
// context error if ctx ends while waiting for a hashing slot.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" || utf8.RuneCountInString(password) > MaxLength {
		return "", ErrInvalidInput
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	if h.cfg.Algorithm == AlgorithmArgon2id {
		return hashArgon2(password, h.cfg.Argon2)
	}

	cost := h.cfg.Cost()
	if err := checkCost(cost); err != nil {
		return "", err
	}
	if len(password) > bcryptMaxBytes {
		out, err := bcrypt.GenerateFromPassword(prehash(password), cost)
		if err != nil {
			return "", err
		}
		return prehashPrefix + string(out), nil
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether password matches encoded. Any malformed input,
// unknown format, cancelled context or library fault yields false.
func (h *Hasher) Verify(ctx context.Context, password, encoded string) bool {
	if password == "" || encoded == "" || utf8.RuneCountInString(password) > MaxLength {
		return false
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	switch {
	case strings.HasPrefix(encoded, argonPrefix):
		return verifyArgon2(password, encoded)
	case strings.HasPrefix(encoded, prehashPrefix):
		inner := strings.TrimPrefix(encoded, prehashPrefix)
		return isBcrypt(inner) && bcrypt.CompareHashAndPassword([]byte(inner), prehash(password)) == nil
	case isBcrypt(encoded):
		if len(password) > bcryptMaxBytes {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether encoded was produced with a different algorithm
// or weaker parameters than the current configuration.
func (h *Hasher) NeedsRehash(encoded string) bool {
	if h.cfg.Algorithm == AlgorithmArgon2id {
		if !strings.HasPrefix(encoded, argonPrefix) {
			return true
		}
		return argon2Weaker(encoded, h.cfg.Argon2)
	}

	encoded = strings.TrimPrefix(encoded, prehashPrefix)
	if !isBcrypt(encoded) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return true
	}
	return cost < h.cfg.Cost()
}

func checkCost(cost int) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("%w: bcrypt cost %d outside [%d,%d]", ErrInvalidConfiguration, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

// prehash maps passwords longer than bcrypt's 72-byte window to a keyed
// digest. Hashes built from it carry prehashPrefix, so a digest presented as
// a password is never compared against them directly.
func prehash(password string) []byte {
	mac := hmac.New(sha256.New, []byte(prehashKey))
	mac.Write([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}
