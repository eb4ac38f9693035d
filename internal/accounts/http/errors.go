package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

const (
	msgInvalidCredentials = "Invalid Email or Password"
	msgInvalidMFACode     = "Invalid or expired MFA code"
	msgEmailNotVerified   = "Email needs to be verified before logging in"
	msgEmailTaken         = "Email already registered"
	msgUserNotFound       = "User not found"
	msgUnexpected         = "An unexpected error occurred"
)

// writeServiceError maps a service error onto a status and message.
// Anything unrecognised is a 500 whose detail only goes to the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tokenErr *service.TokenError

	switch {
	case errors.As(err, &tokenErr):
		httpx.WriteError(w, r, http.StatusBadRequest, tokenErr.Reason)
	case errors.Is(err, service.ErrInvalidMFACode):
		httpx.WriteError(w, r, http.StatusUnauthorized, msgInvalidMFACode)
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, r, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, service.ErrEmailAlreadyExists):
		httpx.WriteError(w, r, http.StatusConflict, msgEmailTaken)
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteError(w, r, http.StatusExpectationFailed, msgEmailNotVerified)
	default:
		slogx.FromContext(r.Context()).Error("unexpected error", "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, msgUnexpected)
	}
}

// decodeBody reads a JSON body into v, writing a 400 and returning false
// on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// validate writes a 400 "Validation failed" and returns false when errs is
// non-empty.
func validate(w http.ResponseWriter, r *http.Request, errs map[string]string) bool {
	if len(errs) > 0 {
		httpx.WriteValidationError(w, r, errs)
		return false
	}
	return true
}
