package service

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")

	// ErrInvalidMFACode is returned by VerifyMFA. It is an ErrInvalidCredentials,
	// so callers cannot tell an unknown email from a bad code.
	ErrInvalidMFACode = fmt.Errorf("%w: invalid or expired MFA code", ErrInvalidCredentials)
)

// ErrInvalidToken matches every token failure below through errors.Is.
var ErrInvalidToken = errors.New("invalid token")

var (
	ErrTokenNotFound    = &TokenError{Reason: "Invalid verification token"}
	ErrTokenAlreadyUsed = &TokenError{Reason: "This verification link has already been used"}
	ErrTokenExpired     = &TokenError{Reason: "This verification link has expired. Please request a new one"}
	ErrTokenWrongType   = &TokenError{Reason: "Invalid token type for password reset"}
)

// TokenError is one reason a single-use secret was rejected. Reason is safe
// to show to the caller.
type TokenError struct {
	Reason string
}

func (e *TokenError) Error() string { return e.Reason }

func (e *TokenError) Is(target error) bool { return target == ErrInvalidToken }

// fault wraps an unexpected storage or crypto failure for the boundary to log.
func fault(op string, err error) error {
	return oops.In("service").Code("INTERNAL").With("operation", op).Wrap(err)
}
