package password

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestScoreEightCharBoundary(t *testing.T) {
	s := Score("Xk7mQp2z", Context{})
	if !s.Valid {
		t.Fatalf("expected valid, got errors %v", s.Errors)
	}
	// 20 length + 45 classes + 5 diversity
	if s.Score != 70 {
		t.Fatalf("score = %d, want 70", s.Score)
	}
}

func TestScoreRejectsWeakSubstringCaseInsensitive(t *testing.T) {
	s := Score("Password1", Context{})
	if s.Valid {
		t.Fatal("expected Password1 to be rejected")
	}
	if !containsSubstring(s.Errors, "password") {
		t.Fatalf("expected forbidden pattern error, got %v", s.Errors)
	}
}

func TestScoreForbiddenPatterns(t *testing.T) {
	cases := map[string]string{
		"Aaaaa9xyzQ":  "repeat",
		"Zx1234abcQ!": "sequential",
		"Zx9876abcQ!": "sequential",
		"MyQwErTy77!": "qwerty",
	}
	for pw, want := range cases {
		s := Score(pw, Context{})
		if s.Valid {
			t.Fatalf("Score(%q) valid, want rejection", pw)
		}
		if !containsSubstring(s.Errors, want) {
			t.Fatalf("Score(%q) errors %v, want mention of %q", pw, s.Errors, want)
		}
	}
}

func TestScoreMissingClasses(t *testing.T) {
	s := Score("alllowercase", Context{})
	if s.Valid {
		t.Fatal("expected lowercase-only password to be invalid")
	}
	if len(s.Errors) != 2 {
		t.Fatalf("expected uppercase and digit errors, got %v", s.Errors)
	}
}

func TestScoreFullMarks(t *testing.T) {
	s := Score("Tr0ub4dor&3xyzKQ", Context{})
	if !s.Valid || s.Score != 100 {
		t.Fatalf("score = %d valid = %v errors = %v", s.Score, s.Valid, s.Errors)
	}
}

func TestScoreContextPenalties(t *testing.T) {
	base := Score("Maria-Lopez7Qz", Context{})
	withCtx := Score("Maria-Lopez7Qz", Context{
		Email:     "maria@uni.test",
		FirstName: "Maria",
		LastName:  "Lopez",
	})
	if base.Score-withCtx.Score != 20 {
		t.Fatalf("penalty = %d, want 20 (email 10 + names 5 + 5)", base.Score-withCtx.Score)
	}
	if len(withCtx.Warnings) < 3 {
		t.Fatalf("expected context warnings, got %v", withCtx.Warnings)
	}
}

func TestScoreContextPenaltiesApplyToShortNames(t *testing.T) {
	base := Score("Kq7-joLi-Wx2z", Context{})
	withCtx := Score("Kq7-joLi-Wx2z", Context{
		Email:     "jo@uni.test",
		FirstName: "Jo",
		LastName:  "Li",
	})
	if base.Score-withCtx.Score != 20 {
		t.Fatalf("penalty = %d, want 20 (email 10 + names 5 + 5)", base.Score-withCtx.Score)
	}

	empty := Score("Kq7-joLi-Wx2z", Context{Email: "@uni.test"})
	if empty.Score != base.Score {
		t.Fatalf("empty context changed score: %d != %d", empty.Score, base.Score)
	}
}

func TestScoreClampedAtZero(t *testing.T) {
	s := Score("", Context{Email: "x@y.z"})
	if s.Score != 0 || s.Valid {
		t.Fatalf("score = %d valid = %v", s.Score, s.Valid)
	}
}

func TestScoreTooLong(t *testing.T) {
	s := Score(strings.Repeat("Ab3$", 33), Context{})
	if s.Valid {
		t.Fatal("expected >128 char password to be invalid")
	}
}

func TestEntropyBits(t *testing.T) {
	got := EntropyBits("aaaa")
	want := math.Log2(math.Pow(26, 4))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EntropyBits(aaaa) = %f, want %f", got, want)
	}
	if math.Abs(got-18.8) > 0.01 {
		t.Fatalf("EntropyBits(aaaa) = %f, want about 18.8", got)
	}
	if EntropyBits("") != 0 {
		t.Fatal("expected zero entropy for empty password")
	}
	mixed := EntropyBits("aA1!")
	if math.Abs(mixed-4*math.Log2(94)) > 1e-9 {
		t.Fatalf("EntropyBits(aA1!) = %f", mixed)
	}
}

func TestGenerateAlwaysValid(t *testing.T) {
	for i := 0; i < 200; i++ {
		pw, err := Generate(DefaultGenerateOptions())
		if err != nil {
			t.Fatalf("Generate error: %v", err)
		}
		if len(pw) != 16 {
			t.Fatalf("len = %d", len(pw))
		}
		if s := Score(pw, Context{}); !s.Valid {
			t.Fatalf("generated %q invalid: %v", pw, s.Errors)
		}
	}
}

func TestGenerateZeroClassesMeansAll(t *testing.T) {
	for i := 0; i < 200; i++ {
		pw, err := Generate(GenerateOptions{Length: 16})
		if err != nil {
			t.Fatalf("Generate error: %v", err)
		}
		if len(pw) != 16 {
			t.Fatalf("len = %d", len(pw))
		}
		if c := classify(pw); !c.lower || !c.upper || !c.digit || !c.special {
			t.Fatalf("missing a class in %q: %+v", pw, c)
		}
		if s := Score(pw, Context{}); !s.Valid {
			t.Fatalf("generated %q invalid: %v", pw, s.Errors)
		}
	}

	pw, err := Generate(GenerateOptions{})
	if err != nil || len(pw) != DefaultGenerateLength {
		t.Fatalf("Generate(zero) = %q, %v", pw, err)
	}
}

func TestGenerateIncludesEverySelectedClass(t *testing.T) {
	opts := GenerateOptions{Length: MinLength, ExcludeLower: true, ExcludeSpecial: true}
	for i := 0; i < 50; i++ {
		pw, err := Generate(opts)
		if err != nil {
			t.Fatalf("Generate error: %v", err)
		}
		c := classify(pw)
		if !c.upper || !c.digit || c.lower || c.special {
			t.Fatalf("unexpected classes in %q: %+v", pw, c)
		}
	}
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	cases := []GenerateOptions{
		{Length: 7},
		{Length: 129},
		{Length: 16, ExcludeLower: true, ExcludeUpper: true, ExcludeDigits: true, ExcludeSpecial: true},
	}
	for _, opts := range cases {
		if _, err := Generate(opts); !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("Generate(%+v) error = %v", opts, err)
		}
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), sub) {
			return true
		}
	}
	return false
}
