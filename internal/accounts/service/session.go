package service

import (
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// SessionMinter signs the bearer tokens handed out after a successful login.
// Sessions are stateless: nothing is stored and nothing can be revoked.
type SessionMinter struct {
	Keys *jwtx.KeyRing
	TTL  time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (m *SessionMinter) ttl() time.Duration {
	if m.TTL <= 0 {
		return jwtx.DefaultSessionTTL
	}
	return m.TTL
}

// Mint returns a signed token for email and the instant it expires.
func (m *SessionMinter) Mint(email string) (string, time.Time, error) {
	if m.Keys == nil {
		return "", time.Time{}, fault("mint session", errors.New("no signing keys"))
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}

	claims := jwtx.NewSessionClaims(email, m.Keys.Issuer, m.ttl(), now)
	token, err := m.Keys.Sign(claims)
	if err != nil {
		return "", time.Time{}, fault("mint session", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// ExpiryOf verifies token and returns its expiry.
func (m *SessionMinter) ExpiryOf(token string) (time.Time, error) {
	claims, err := m.Verifier().Verify(token)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

// Verifier checks tokens minted by m.
func (m *SessionMinter) Verifier() jwtx.Verifier {
	return m.Keys.Verifier
}
