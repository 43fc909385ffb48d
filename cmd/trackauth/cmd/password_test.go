package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/trackauth/password"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestPasswordScore(t *testing.T) {
	out := run(t, "", "password", "score", "Password1")
	assert.Contains(t, out, "valid:   false")
	assert.Contains(t, out, "error: ")

	out = run(t, "Tr0ub4dor&3xyz\n", "password", "score")
	assert.Contains(t, out, "valid:   true")
	assert.Contains(t, out, "entropy: ")
}

func TestPasswordGenerate(t *testing.T) {
	out := run(t, "", "password", "generate", "--length", "20", "--count", "3")

	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	for _, pw := range lines {
		assert.Len(t, pw, 20)
		assert.True(t, password.Score(pw, password.Context{}).Valid, pw)
	}
}

func TestPasswordHash(t *testing.T) {
	const secret = "Tr0ub4dor&3xyz"

	encoded := strings.TrimSpace(run(t, secret+"\n", "password", "hash", "--cost", "4"))
	require.True(t, strings.HasPrefix(encoded, "$2a$04$"), encoded)

	h, err := password.NewHasher(password.Config{})
	require.NoError(t, err)
	assert.True(t, h.Verify(context.Background(), secret, encoded))

	encoded = strings.TrimSpace(run(t, secret+"\n", "password", "hash", "--algorithm", "argon2id"))
	require.True(t, strings.HasPrefix(encoded, "$argon2id$"), encoded)
	assert.True(t, h.Verify(context.Background(), secret, encoded))
}

func TestReadSecretRejectsEmptyInput(t *testing.T) {
	passwordHashCmd.SetIn(strings.NewReader("\n"))
	t.Cleanup(func() { passwordHashCmd.SetIn(nil) })

	_, err := readSecret(passwordHashCmd, nil, "")
	require.Error(t, err)
}
