package accountsdk

import (
	"context"
	"net/http"
	"time"
)

// Session is an authenticated caller. Session tokens are not refreshable:
// once Expired reports true, log in again.
type Session struct {
	client      *Client
	accessToken string
	expiresAt   time.Time
}

func (s *Session) AccessToken() string { return s.accessToken }

// ExpiresAt is zero when the session was built from a bare token.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

func (s *Session) Expired() bool {
	return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt)
}

// Me returns the account behind the session.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodGet, "/api/auth/me", s.accessToken, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}
