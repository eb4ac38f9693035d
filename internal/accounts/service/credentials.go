package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

// PasswordHasher is implemented by cryptox.Argon2Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// CredentialVerifier checks an email and password against the stored hash.
type CredentialVerifier struct {
	Hasher PasswordHasher
}

// Authenticate returns the user registered under email if password matches.
// An unknown email and a wrong password are both ErrInvalidCredentials.
func (v *CredentialVerifier) Authenticate(ctx context.Context, st store.Store, email, password string) (domain.User, error) {
	user, err := st.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fault("lookup user", err)
	}
	if err := v.Check(user, password); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Check compares password against the user's stored hash.
func (v *CredentialVerifier) Check(user domain.User, password string) error {
	ok, err := v.Hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return fault("verify password", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword hashes a new password for storage.
func (v *CredentialVerifier) HashPassword(password string) (string, error) {
	hash, err := v.Hasher.Hash(password)
	if err != nil {
		return "", fault("hash password", err)
	}
	return hash, nil
}
