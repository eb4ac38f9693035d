package accountsdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// GetJWKS retrieves the JSON Web Key Set for session token verification.
func (c *Client) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", "", nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// SessionVerifier fetches the published keys and returns a verifier for
// session tokens, for services that accept accounts sessions without
// calling back on every request. issuer must match the service's
// AUTH_ISSUER; empty skips the check.
func (c *Client) SessionVerifier(ctx context.Context, issuer string) (jwtx.Verifier, error) {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, err
	}

	keys := jwtx.NewKeySet()
	if err := keys.ResetFromJWKS(jwtx.JWKS(*jwks)); err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}
	return jwtx.NewVerifier(keys, issuer), nil
}
