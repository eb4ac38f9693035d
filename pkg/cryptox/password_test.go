package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast; production uses DefaultArgon2Params.
func testHasher(pepper string) *Argon2Hasher {
	return &Argon2Hasher{
		Params: Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		Pepper: pepper,
	}
}

func TestArgon2Hasher_Hash(t *testing.T) {
	h := testHasher("pepper")

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"), hash)
			require.Len(t, strings.Split(hash, "$"), 6)

			ok, err := h.Verify(tt.password, hash)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = h.Verify(tt.password+"x", hash)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestArgon2Hasher_UniqueSalts(t *testing.T) {
	h := testHasher("pepper")

	a, err := h.Hash("samepassword")
	require.NoError(t, err)
	b, err := h.Hash("samepassword")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestArgon2Hasher_PepperMatters(t *testing.T) {
	hash, err := testHasher("one").Hash("pw12345")
	require.NoError(t, err)

	ok, err := testHasher("two").Verify("pw12345", hash)
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, testHasher("two").Compare("pw12345", hash), ErrPasswordMismatch)
	require.NoError(t, testHasher("one").Compare("pw12345", hash))
}

func TestArgon2Hasher_UsesStoredParams(t *testing.T) {
	old := testHasher("pepper")
	hash, err := old.Hash("pw12345")
	require.NoError(t, err)

	tuned := testHasher("pepper")
	tuned.Params.Iterations = 3
	tuned.Params.Memory = 128

	ok, err := tuned.Verify("pw12345", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestArgon2Hasher_MalformedHash(t *testing.T) {
	h := testHasher("pepper")

	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$",
	} {
		_, err := h.Verify("pw", encoded)
		require.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}
