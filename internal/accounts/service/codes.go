package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/pquerna/otp"
)

// DefaultCodeTTL is how long an emailed MFA code may be used.
const DefaultCodeTTL = 10 * time.Minute

// CodeIssuer hands out the short numeric codes used as a second factor.
type CodeIssuer struct {
	secrets SecretIssuer
}

// NewCodeIssuer returns an issuer of digits-long codes valid for ttl. Zero
// values fall back to six digits and DefaultCodeTTL.
func NewCodeIssuer(ttl time.Duration, digits otp.Digits) *CodeIssuer {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	if digits == 0 {
		digits = otp.DigitsSix
	}
	return &CodeIssuer{secrets: SecretIssuer{
		Generate: func() (string, error) { return cryptox.GenerateNumericCode(digits) },
		Lookup:   LookupBySecretAndOwner,
		TTL:      ttl,
		Repo:     store.Store.MFACodes,
	}}
}

// TTL is how long a freshly issued code stays redeemable.
func (c *CodeIssuer) TTL() time.Duration { return c.secrets.TTL }

// IssueCode replaces the user's codes with a new one, queues it on out for
// delivery to the user's address, and returns it.
func (c *CodeIssuer) IssueCode(ctx context.Context, st store.Store, out Notifier, user domain.User) (string, error) {
	secret, err := c.secrets.Issue(ctx, st, user.ID, domain.SecretMFACode)
	if err != nil {
		return "", err
	}
	out.Enqueue(domain.Message{
		To:           user.Email,
		Notification: domain.NewMFACodeEmail(user.DisplayName(), secret.Value, c.secrets.TTL),
	})
	return secret.Value, nil
}

// VerifyCode consumes code if it is the user's, unused and unexpired. Every
// rejection is the same false; only storage faults are errors.
func (c *CodeIssuer) VerifyCode(ctx context.Context, st store.Store, user domain.User, code string) (bool, error) {
	secret, err := c.secrets.ValidateFor(ctx, st, user.ID, code)
	if errors.Is(err, ErrInvalidToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := c.secrets.Consume(ctx, st, secret); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes expired codes and reports how many went.
func (c *CodeIssuer) PurgeExpired(ctx context.Context, st store.Store) (int64, error) {
	return c.secrets.PurgeExpired(ctx, st)
}
