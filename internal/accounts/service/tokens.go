package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
)

// DefaultTokenValidity is how long verification and reset links stay valid.
const DefaultTokenValidity = 24 * time.Hour

// TokenIssuer hands out the opaque tokens embedded in verification and
// password reset links.
type TokenIssuer struct {
	secrets SecretIssuer
}

// NewTokenIssuer returns an issuer whose tokens expire after validity
// (DefaultTokenValidity when zero).
func NewTokenIssuer(validity time.Duration) *TokenIssuer {
	if validity <= 0 {
		validity = DefaultTokenValidity
	}
	return &TokenIssuer{secrets: SecretIssuer{
		Generate: func() (string, error) { return cryptox.GenerateToken(cryptox.TokenSize256) },
		Lookup:   LookupBySecret,
		TTL:      validity,
		Repo:     store.Store.VerificationTokens,
	}}
}

// Validity is how long a freshly issued token stays redeemable.
func (t *TokenIssuer) Validity() time.Duration { return t.secrets.TTL }

// Issue replaces the user's live tokens of kind with a new one and returns it.
func (t *TokenIssuer) Issue(ctx context.Context, st store.Store, user domain.User, kind domain.SecretKind) (string, error) {
	secret, err := t.secrets.Issue(ctx, st, user.ID, kind)
	if err != nil {
		return "", err
	}
	return secret.Value, nil
}

// Validate returns the record for token if it exists, is unused and is not
// expired. The token is not consumed.
func (t *TokenIssuer) Validate(ctx context.Context, st store.Store, token string) (domain.Secret, error) {
	return t.secrets.Validate(ctx, st, token)
}

// Consume marks a token returned by Validate as used.
func (t *TokenIssuer) Consume(ctx context.Context, st store.Store, token domain.Secret) error {
	return t.secrets.Consume(ctx, st, token)
}

// Latest returns the user's most recently issued token of kind.
func (t *TokenIssuer) Latest(ctx context.Context, st store.Store, userID int64, kind domain.SecretKind) (domain.Secret, error) {
	return t.secrets.Latest(ctx, st, userID, kind)
}

// PurgeExpired deletes expired tokens and reports how many went.
func (t *TokenIssuer) PurgeExpired(ctx context.Context, st store.Store) (int64, error) {
	return t.secrets.PurgeExpired(ctx, st)
}
