package jwtx_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewKeyRing_Algorithms(t *testing.T) {
	for _, alg := range []string{jwtx.AlgorithmEdDSA, jwtx.AlgorithmES256} {
		t.Run(alg, func(t *testing.T) {
			ring, err := jwtx.NewKeyRing(jwtx.KeyRingOptions{Algorithm: alg, Issuer: "accounts", NumKeys: 3})
			require.NoError(t, err)
			require.True(t, ring.IsReady())
			require.Equal(t, alg, ring.Algorithm())
			require.Len(t, ring.KeySet.PublicJWKS().Keys, 3)

			for range 10 {
				token, err := ring.Sign(jwtx.NewSessionClaims("ada@example.com", "accounts", time.Hour, time.Now()))
				require.NoError(t, err)

				claims, err := ring.Verifier.Verify(token)
				require.NoError(t, err)
				require.Equal(t, "ada@example.com", claims.Subject)
			}
		})
	}
}

func TestNewKeyRing_Defaults(t *testing.T) {
	ring, err := jwtx.NewKeyRing(jwtx.KeyRingOptions{Issuer: "accounts"})
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmEdDSA, ring.Algorithm())
	require.Len(t, ring.KeySet.PublicJWKS().Keys, 1)

	_, err = jwtx.NewKeyRing(jwtx.KeyRingOptions{})
	require.Error(t, err)

	_, err = jwtx.NewKeyRing(jwtx.KeyRingOptions{Issuer: "accounts", Algorithm: "RS256"})
	require.Error(t, err)
}

func TestNewKeyRing_KeyFileSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "signing.pem")
	opts := jwtx.KeyRingOptions{Issuer: "accounts", KeyFile: path}

	first, err := jwtx.NewKeyRing(opts)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err := first.Sign(jwtx.NewSessionClaims("ada@example.com", "accounts", time.Hour, time.Now()))
	require.NoError(t, err)

	second, err := jwtx.NewKeyRing(opts)
	require.NoError(t, err)
	require.Equal(t, first.Signer().KID(), second.Signer().KID())

	claims, err := second.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", claims.Subject)
}

func TestNewKeyRing_RejectsGarbageKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := jwtx.NewKeyRing(jwtx.KeyRingOptions{Issuer: "accounts", KeyFile: path})
	require.Error(t, err)
}
