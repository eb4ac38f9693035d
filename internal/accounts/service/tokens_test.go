package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := newSecretUser(t, st, "ada@example.com")
	tokens := NewTokenIssuer(2 * time.Hour)
	require.Equal(t, 2*time.Hour, tokens.Validity())

	_, err := tokens.Latest(ctx, st, user.ID, domain.SecretPasswordReset)
	require.ErrorIs(t, err, ErrTokenNotFound)

	value, err := tokens.Issue(ctx, st, user, domain.SecretPasswordReset)
	require.NoError(t, err)

	latest, err := tokens.Latest(ctx, st, user.ID, domain.SecretPasswordReset)
	require.NoError(t, err)
	require.Equal(t, value, latest.Value)
	require.Equal(t, domain.SecretPasswordReset, latest.Kind)
	require.WithinDuration(t, time.Now().Add(2*time.Hour), latest.ExpiresAt, time.Minute)

	secret, err := tokens.Validate(ctx, st, value)
	require.NoError(t, err)
	require.Nil(t, secret.VerifiedAt)

	// Validate alone does not use the token up.
	_, err = tokens.Validate(ctx, st, value)
	require.NoError(t, err)

	require.NoError(t, tokens.Consume(ctx, st, secret))
	_, err = tokens.Validate(ctx, st, value)
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)

	latest, err = tokens.Latest(ctx, st, user.ID, domain.SecretPasswordReset)
	require.NoError(t, err)
	require.NotNil(t, latest.VerifiedAt, "Latest returns consumed tokens too")
}

func TestTokenIssuer_DefaultValidity(t *testing.T) {
	require.Equal(t, DefaultTokenValidity, NewTokenIssuer(0).Validity())
	require.Equal(t, DefaultTokenValidity, NewTokenIssuer(-time.Minute).Validity())
}
