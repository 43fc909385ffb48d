package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"
)

const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	specialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	maxGenerateAttempts = 64
)

// DefaultGenerateLength is the length used when GenerateOptions.Length is zero.
const DefaultGenerateLength = 16

// GenerateOptions selects the length and character classes of a generated
// password. The zero value draws from every class; set an Exclude field to
// drop one.
type GenerateOptions struct {
	Length         int
	ExcludeLower   bool
	ExcludeUpper   bool
	ExcludeDigits  bool
	ExcludeSpecial bool
}

// DefaultGenerateOptions returns 16 characters drawn from every class.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Length: DefaultGenerateLength}
}

// Generate produces a random password with at least one character from every
// selected class. Remaining positions are filled from the combined set and the
// result is shuffled. Candidates that trip a forbidden pattern are discarded.
func Generate(opts GenerateOptions) (string, error) {
	if opts.Length == 0 {
		opts.Length = DefaultGenerateLength
	}
	if opts.Length < MinLength || opts.Length > MaxLength {
		return "", fmt.Errorf("%w: length must be between %d and %d", ErrInvalidConfiguration, MinLength, MaxLength)
	}

	var sets []string
	if !opts.ExcludeLower {
		sets = append(sets, lowerChars)
	}
	if !opts.ExcludeUpper {
		sets = append(sets, upperChars)
	}
	if !opts.ExcludeDigits {
		sets = append(sets, digitChars)
	}
	if !opts.ExcludeSpecial {
		sets = append(sets, specialChars)
	}
	if len(sets) == 0 {
		return "", fmt.Errorf("%w: at least one character class is required", ErrInvalidConfiguration)
	}
	combined := strings.Join(sets, "")

	for range maxGenerateAttempts {
		candidate, err := generateOnce(opts.Length, sets, combined)
		if err != nil {
			return "", err
		}
		if !hasForbiddenPattern(candidate) {
			return candidate, nil
		}
	}
	return "", errors.New("password generation exhausted attempts")
}

func generateOnce(length int, sets []string, combined string) (string, error) {
	out := make([]byte, 0, length)
	for _, set := range sets {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := pick(combined)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates
	for i := len(out) - 1; i > 0; i-- {
		j, err := randIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func pick(set string) (byte, error) {
	i, err := randIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// EntropyBits estimates log2(charsetSize^length), where charsetSize sums the
// classes present in password: 26 lower, 26 upper, 10 digits, 32 special.
func EntropyBits(password string) float64 {
	n := utf8.RuneCountInString(password)
	if n == 0 {
		return 0
	}

	classes := classify(password)
	size := 0
	if classes.lower {
		size += len(lowerChars)
	}
	if classes.upper {
		size += len(upperChars)
	}
	if classes.digit {
		size += len(digitChars)
	}
	if classes.special {
		size += len(specialChars)
	}

	return float64(n) * math.Log2(float64(size))
}
