package accountsdk

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to the accounts service. It covers the unauthenticated
// endpoints and creates Sessions for the rest.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSession wraps an existing session token, e.g. one stored by a web
// frontend. expiresAt may be zero when unknown.
func (c *Client) NewSession(accessToken string, expiresAt time.Time) *Session {
	return &Session{
		client:      c,
		accessToken: accessToken,
		expiresAt:   expiresAt,
	}
}
