package domain

import "time"

// SecretKind says what a single-use secret may be redeemed for.
type SecretKind string

const (
	SecretEmailVerification SecretKind = "EMAIL_VERIFICATION"
	SecretPasswordReset     SecretKind = "PASSWORD_RESET"
	SecretMFACode           SecretKind = "MFA_CODE"
)

// Secret is a single-use, expiring value tied to a user. Verification links,
// password reset links and MFA codes are all secrets; they only differ in how
// the value is generated and how it is looked up.
type Secret struct {
	ID         string // ULID
	UserID     int64
	Kind       SecretKind
	Value      string     // Opaque token or numeric code
	ExpiresAt  time.Time
	VerifiedAt *time.Time // nil until consumed
	CreatedAt  time.Time
}

// IsConsumed reports whether the secret has already been redeemed.
func (s Secret) IsConsumed() bool {
	return s.VerifiedAt != nil
}

// IsExpired returns true if the secret has passed its expiry at now.
func (s Secret) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
