package accountsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinels matched by *APIError through errors.Is.
var (
	ErrValidation       = errors.New("accountsdk: validation failed")
	ErrInvalidToken     = errors.New("accountsdk: invalid verification token")
	ErrUnauthorized     = errors.New("accountsdk: unauthorized")
	ErrForbidden        = errors.New("accountsdk: forbidden")
	ErrNotFound         = errors.New("accountsdk: not found")
	ErrEmailTaken       = errors.New("accountsdk: email already registered")
	ErrEmailNotVerified = errors.New("accountsdk: email not verified")
	ErrServer           = errors.New("accountsdk: server error")
)

// ErrorResponse is the JSON body of every error the service returns.
type ErrorResponse struct {
	Timestamp   time.Time         `json:"timestamp"`
	Status      int               `json:"status" example:"400"`
	Error       string            `json:"error" example:"Bad Request"`
	Message     string            `json:"message" example:"Validation failed"`
	Path        string            `json:"path" example:"/api/auth/register"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// APIError is a non-2xx response. Use errors.Is with the sentinels above
// to branch on the kind of failure.
type APIError struct {
	StatusCode  int
	Message     string
	Path        string
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest && len(e.FieldErrors) > 0
	case ErrInvalidToken:
		return e.StatusCode == http.StatusBadRequest && len(e.FieldErrors) == 0
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrEmailTaken:
		return e.StatusCode == http.StatusConflict
	case ErrEmailNotVerified:
		return e.StatusCode == http.StatusExpectationFailed
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// MFARequiredError is returned by Client.Authenticate when the account has
// MFA enabled. A code has been emailed; finish with Client.CompleteMFA.
type MFARequiredError struct {
	Email   string
	Message string
}

func (e *MFARequiredError) Error() string {
	return "MFA required: " + e.Message
}

// parseErrorResponse turns an error response into an *APIError, falling
// back to the status text when the body is not an ErrorResponse.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Message = errResp.Message
		apiErr.Path = errResp.Path
		apiErr.FieldErrors = errResp.FieldErrors
	}
	return apiErr
}
