package accountsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestAPIErrorMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		fields map[string]string
		want   error
	}{
		{http.StatusBadRequest, map[string]string{"email": "Email is required"}, ErrValidation},
		{http.StatusBadRequest, nil, ErrInvalidToken},
		{http.StatusUnauthorized, nil, ErrUnauthorized},
		{http.StatusForbidden, nil, ErrForbidden},
		{http.StatusNotFound, nil, ErrNotFound},
		{http.StatusConflict, nil, ErrEmailTaken},
		{http.StatusExpectationFailed, nil, ErrEmailNotVerified},
		{http.StatusServiceUnavailable, nil, ErrServer},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.status, FieldErrors: tt.fields}
		require.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}

	require.NotErrorIs(t, &APIError{StatusCode: http.StatusBadRequest}, ErrValidation)
}

func TestClient_ErrorResponseIsDecoded(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusExpectationFailed, ErrorResponse{
			Status:  http.StatusExpectationFailed,
			Error:   "Expectation Failed",
			Message: "Email needs to be verified before logging in",
			Path:    r.URL.Path,
		})
	})
	client := newTestClient(t, mux)

	_, err := client.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.ErrorIs(t, err, ErrEmailNotVerified)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Email needs to be verified before logging in", apiErr.Message)
	require.Equal(t, "/api/auth/login", apiErr.Path)
}

func TestClient_AuthenticateWithMFA(t *testing.T) {
	t.Parallel()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, MFAPendingResponse{MFARequired: true, Message: "MFA code sent to your email"})
	})
	mux.HandleFunc("POST /api/auth/verify-mfa", func(w http.ResponseWriter, r *http.Request) {
		var req VerifyMFARequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Code != "123456" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Status: 401, Message: "Invalid or expired MFA code"})
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{
			AccessToken: "session-token",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
			ExpiresAt:   expires,
			User:        UserResponse{ID: 1, Email: req.Email},
		})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, UserResponse{ID: 1, Email: "ada@example.com"})
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	_, err := client.Authenticate(ctx, "ada@example.com", "pw")
	var mfa *MFARequiredError
	require.ErrorAs(t, err, &mfa)
	require.Equal(t, "ada@example.com", mfa.Email)

	_, err = client.CompleteMFA(ctx, mfa, "000000")
	require.ErrorIs(t, err, ErrUnauthorized)

	session, err := client.CompleteMFA(ctx, mfa, "123456")
	require.NoError(t, err)
	require.Equal(t, "session-token", session.AccessToken())
	require.True(t, session.ExpiresAt().Equal(expires))
	require.False(t, session.Expired())

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", me.Email)
}

func TestClient_QueryParameterEndpoints(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok&en", r.URL.Query().Get("token"))
		assert.Equal(t, "new pass", r.URL.Query().Get("newPassword"))
		writeJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
	})
	mux.HandleFunc("GET /api/auth/verify-email", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: 400, Message: "This verification link has expired. Please request a new one"})
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	msg, err := client.ResetPassword(ctx, ResetPasswordRequest{Token: "tok&en", NewPassword: "new pass"})
	require.NoError(t, err)
	require.Equal(t, "ok", msg.Message)

	_, err = client.VerifyEmail(ctx, "stale")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.Contains(t, err.Error(), "expired")
}

func TestSession_DeleteUser(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "7" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusNotFound, ErrorResponse{Status: 404, Message: "User not found"})
	})
	session := newTestClient(t, mux).NewSession("token", time.Time{})
	ctx := context.Background()

	require.NoError(t, session.DeleteUser(ctx, 7))
	require.ErrorIs(t, session.DeleteUser(ctx, 8), ErrNotFound)
}

func TestClient_SessionVerifier(t *testing.T) {
	t.Parallel()

	ring, err := jwtx.NewKeyRing(jwtx.KeyRingOptions{Issuer: "accounts-test"})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ring.KeySet.PublicJWKS())
	})
	client := newTestClient(t, mux)

	verifier, err := client.SessionVerifier(context.Background(), "accounts-test")
	require.NoError(t, err)

	token, err := ring.Sign(jwtx.NewSessionClaims("ada@example.com", "accounts-test", time.Hour, time.Now()))
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", claims.Subject)

	other, err := jwtx.NewKeyRing(jwtx.KeyRingOptions{Issuer: "accounts-test"})
	require.NoError(t, err)
	forged, err := other.Sign(jwtx.NewSessionClaims("ada@example.com", "accounts-test", time.Hour, time.Now()))
	require.NoError(t, err)
	_, err = verifier.Verify(forged)
	require.True(t, errors.Is(err, jwtx.ErrUnknownKID) || errors.Is(err, jwtx.ErrInvalidSig))
}
