package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minArgonMemoryKB    uint32 = 8 * 1024
	minArgonTime        uint32 = 1
	minArgonParallelism uint8  = 1
	minArgonSaltLength  uint32 = 16
	minArgonKeyLength   uint32 = 16
	argonPrefix                = "$argon2id$"
)

// Argon2Params tunes the alternate argon2id algorithm.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params mirrors the OWASP baseline for argon2id.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Argon2Params) validate() error {
	switch {
	case p.Memory < minArgonMemoryKB:
		return fmt.Errorf("%w: argon2 memory must be >= %d KiB", ErrInvalidConfiguration, minArgonMemoryKB)
	case p.Time < minArgonTime:
		return fmt.Errorf("%w: argon2 time must be >= 1", ErrInvalidConfiguration)
	case p.Parallelism < minArgonParallelism:
		return fmt.Errorf("%w: argon2 parallelism must be >= 1", ErrInvalidConfiguration)
	case p.SaltLength < minArgonSaltLength:
		return fmt.Errorf("%w: argon2 salt length must be >= 16", ErrInvalidConfiguration)
	case p.KeyLength < minArgonKeyLength:
		return fmt.Errorf("%w: argon2 key length must be >= 16", ErrInvalidConfiguration)
	}
	return nil
}

type argonHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func hashArgon2(password string, p Argon2Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argonPrefix,
		argon2.Version,
		p.Memory,
		p.Time,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func verifyArgon2(password, encoded string) bool {
	parsed, err := parseArgon2(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.params.Time,
		parsed.params.Memory,
		parsed.params.Parallelism,
		parsed.params.KeyLength,
	)

	return subtle.ConstantTimeCompare(computed, parsed.key) == 1
}

func argon2Weaker(encoded string, want Argon2Params) bool {
	parsed, err := parseArgon2(encoded)
	if err != nil {
		return true
	}
	got := parsed.params
	return want.Memory > got.Memory ||
		want.Time > got.Time ||
		want.Parallelism > got.Parallelism ||
		want.KeyLength != got.KeyLength
}

func parseArgon2(encoded string) (*argonHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id encoding")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var p Argon2Params
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid argon2 parameter")
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, errors.New("invalid argon2 parameter value")
		}
		switch k {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Time = uint32(n)
		case "p":
			if n > 255 {
				return nil, errors.New("invalid argon2 parallelism")
			}
			p.Parallelism = uint8(n)
		default:
			return nil, errors.New("unsupported argon2 parameter")
		}
	}
	if p.Memory < minArgonMemoryKB || p.Time < minArgonTime || p.Parallelism < minArgonParallelism {
		return nil, errors.New("argon2 parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minArgonSaltLength) {
		return nil, errors.New("invalid argon2 salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, errors.New("invalid argon2 key")
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return &argonHash{params: p, salt: salt, key: key}, nil
}
