package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValidScore is the minimum score a password must reach to be valid.
const ValidScore = 60

var weakSubstrings = []string{
	"password",
	"qwerty",
	"letmein",
	"welcome",
	"abc123",
	"iloveyou",
	"admin123",
}

// Context carries account details a password should not echo.
type Context struct {
	Email     string
	FirstName string
	LastName  string
}

// Strength is the outcome of Score. Errors are rule violations; Warnings
// explain deductions; Suggestions list ways to raise the score.
type Strength struct {
	Valid       bool
	Score       int
	Errors      []string
	Warnings    []string
	Suggestions []string
}

type charClasses struct {
	upper, lower, digit, special bool
}

func classify(password string) charClasses {
	var c charClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		default:
			c.special = true
		}
	}
	return c
}

// Score rates password against the length, character-class and forbidden
// pattern rules, then applies context penalties. The result is deterministic.
func Score(password string, pc Context) Strength {
	var s Strength
	n := utf8.RuneCountInString(password)
	classes := classify(password)

	if n < MinLength {
		s.Errors = append(s.Errors, fmt.Sprintf("Password must be at least %d characters long", MinLength))
	} else {
		s.Score += 20
	}
	if n > MaxLength {
		s.Errors = append(s.Errors, fmt.Sprintf("Password must be at most %d characters long", MaxLength))
	}

	if classes.upper {
		s.Score += 15
	} else {
		s.Errors = append(s.Errors, "Password must contain at least one uppercase letter")
	}
	if classes.lower {
		s.Score += 15
	} else {
		s.Errors = append(s.Errors, "Password must contain at least one lowercase letter")
	}
	if classes.digit {
		s.Score += 15
	} else {
		s.Errors = append(s.Errors, "Password must contain at least one number")
	}
	if classes.special {
		s.Score += 10
	} else {
		s.Suggestions = append(s.Suggestions, "Add special characters for extra strength")
	}

	if n >= 12 {
		s.Score += 10
	} else {
		s.Suggestions = append(s.Suggestions, "Use 12 or more characters")
	}
	if n >= 16 {
		s.Score += 10
	}

	if n > 0 && float64(uniqueRunes(password))/float64(n) >= 0.7 {
		s.Score += 5
	} else if n > 0 {
		s.Warnings = append(s.Warnings, "Password reuses many of the same characters")
	}

	s.Errors = append(s.Errors, forbiddenPatterns(password)...)

	lower := strings.ToLower(password)
	if local, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(pc.Email)), "@"); local != "" && strings.Contains(lower, local) {
		s.Score -= 10
		s.Warnings = append(s.Warnings, "Password should not contain your email address")
	}
	for _, name := range []string{pc.FirstName, pc.LastName} {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.Contains(lower, name) {
			s.Score -= 5
			s.Warnings = append(s.Warnings, "Password should not contain your name")
		}
	}

	s.Score = max(0, min(100, s.Score))
	s.Valid = len(s.Errors) == 0 && s.Score >= ValidScore
	return s
}

func forbiddenPatterns(password string) []string {
	var errs []string
	if hasRepeatRun(password, 4) {
		errs = append(errs, "Password must not repeat the same character 4 or more times in a row")
	}
	lower := strings.ToLower(password)
	for _, w := range weakSubstrings {
		if strings.Contains(lower, w) {
			errs = append(errs, fmt.Sprintf("Password must not contain the common pattern %q", w))
		}
	}
	if hasDigitSequence(password, 4) {
		errs = append(errs, "Password must not contain sequential digits")
	}
	return errs
}

func hasForbiddenPattern(password string) bool {
	return len(forbiddenPatterns(password)) > 0
}

func hasRepeatRun(password string, run int) bool {
	var prev rune
	count := 0
	for i, r := range password {
		if i > 0 && r == prev {
			count++
		} else {
			count = 1
		}
		if count >= run {
			return true
		}
		prev = r
	}
	return false
}

// hasDigitSequence finds run consecutive digits stepping by +1 or -1, e.g. 1234 or 8765.
func hasDigitSequence(password string, run int) bool {
	up, down := 1, 1
	var prev rune
	for i, r := range password {
		if i == 0 || !isASCIIDigit(r) || !isASCIIDigit(prev) {
			up, down = 1, 1
		} else {
			if r == prev+1 {
				up++
			} else {
				up = 1
			}
			if r == prev-1 {
				down++
			} else {
				down = 1
			}
		}
		if up >= run || down >= run {
			return true
		}
		prev = r
	}
	return false
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func uniqueRunes(s string) int {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
