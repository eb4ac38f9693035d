package accountsdk

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Register creates an unverified account. The service emails a
// verification link; no session is returned.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", "", req)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail redeems the token from a verification link.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	q := url.Values{"token": {token}}
	return c.messageRequest(ctx, http.MethodGet, "/api/auth/verify-email?"+q.Encode())
}

// Login submits a password. The response is either a session or, for
// accounts with MFA, an MFA-pending acknowledgement.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", "", req)
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA exchanges an emailed code for a session token.
func (c *Client) VerifyMFA(ctx context.Context, req VerifyMFARequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/verify-mfa", "", req)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword asks for a reset link. The acknowledgement is the same
// whether or not the account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	q := url.Values{"email": {email}}
	return c.messageRequest(ctx, http.MethodPost, "/api/auth/forgot-password?"+q.Encode())
}

// ResetPassword redeems a reset token. It does not log the user in.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*MessageResponse, error) {
	q := url.Values{"token": {req.Token}, "newPassword": {req.NewPassword}}
	return c.messageRequest(ctx, http.MethodPost, "/api/auth/reset-password?"+q.Encode())
}

// Authenticate logs in and returns a Session. For accounts with MFA it
// returns an *MFARequiredError instead; finish with CompleteMFA.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	login, err := c.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if login.MFARequired {
		return nil, &MFARequiredError{Email: email, Message: login.Message}
	}
	return c.sessionFrom(login.AccessToken, login.ExpiresIn, login.ExpiresAt), nil
}

// CompleteMFA finishes an MFA login started by Authenticate.
func (c *Client) CompleteMFA(ctx context.Context, mfa *MFARequiredError, code string) (*Session, error) {
	auth, err := c.VerifyMFA(ctx, VerifyMFARequest{Email: mfa.Email, Code: code})
	if err != nil {
		return nil, err
	}
	return c.sessionFrom(auth.AccessToken, auth.ExpiresIn, auth.ExpiresAt), nil
}

func (c *Client) sessionFrom(token string, expiresIn int64, expiresAt time.Time) *Session {
	if expiresAt.IsZero() && expiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return c.NewSession(token, expiresAt)
}

func (c *Client) messageRequest(ctx context.Context, method, path string) (*MessageResponse, error) {
	resp, err := c.doRequest(ctx, method, path, "", nil)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
