package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/stretchr/testify/require"
)

func TestCredentialVerifier_Authenticate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	creds := &CredentialVerifier{Hasher: newTestHasher()}

	hash, err := creds.HashPassword("correct horse")
	require.NoError(t, err)
	require.NotContains(t, hash, "correct horse")

	user, err := st.Users().CreateUser(ctx, domain.User{
		Email:            "ada@example.com",
		PasswordHash:     hash,
		FirstName:        "Ada",
		Role:             domain.RoleUser,
		SubscriptionTier: domain.TierFree,
		Enabled:          true,
	})
	require.NoError(t, err)

	got, err := creds.Authenticate(ctx, st, "ada@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = creds.Authenticate(ctx, st, "ada@example.com", "wrong horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = creds.Authenticate(ctx, st, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCredentialVerifier_CorruptHashIsAFault(t *testing.T) {
	creds := &CredentialVerifier{Hasher: newTestHasher()}

	err := creds.Check(domain.User{PasswordHash: "not-a-hash"}, "anything")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}
