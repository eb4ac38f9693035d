package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newRing(t *testing.T) *jwtx.KeyRing {
	t.Helper()
	ring, err := jwtx.NewKeyRing(jwtx.KeyRingOptions{Issuer: "accounts"})
	require.NoError(t, err)
	return ring
}

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, _ := httpx.SubjectFromContext(r.Context())
		_, _ = w.Write([]byte(sub))
	})
}

func TestAuthnMiddleware(t *testing.T) {
	ring := newRing(t)
	h := httpx.Chain(echoSubject(), httpx.AuthnMiddleware(ring.Verifier))

	valid, err := ring.Sign(jwtx.NewSessionClaims("ada@example.com", "accounts", time.Hour, time.Now()))
	require.NoError(t, err)
	expired, err := ring.Sign(jwtx.NewSessionClaims("ada@example.com", "accounts", time.Minute, time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "ada@example.com"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				require.Equal(t, tt.wantBody, rec.Body.String())
				return
			}

			require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
			var body httpx.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, http.StatusUnauthorized, body.Status)
			require.Equal(t, "/api/auth/me", body.Path)
		})
	}
}

func TestRequireRole(t *testing.T) {
	ring := newRing(t)
	roles := map[string]string{"admin@example.com": "ADMIN", "user@example.com": "USER"}
	lookup := func(_ context.Context, subject string) (string, error) {
		role, ok := roles[subject]
		if !ok {
			return "", errors.New("no such user")
		}
		return role, nil
	}

	h := httpx.Chain(echoSubject(),
		httpx.AuthnMiddleware(ring.Verifier),
		httpx.RequireRole(lookup, "ADMIN"),
	)

	for subject, want := range map[string]int{
		"admin@example.com": http.StatusOK,
		"user@example.com":  http.StatusForbidden,
		"ghost@example.com": http.StatusForbidden,
	} {
		t.Run(subject, func(t *testing.T) {
			token, err := ring.Sign(jwtx.NewSessionClaims(subject, "accounts", time.Hour, time.Now()))
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, want, rec.Code)
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("first"), mw("second"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second", "handler"}, order)
}
