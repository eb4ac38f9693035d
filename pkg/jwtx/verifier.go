package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// KeySetVerifier checks tokens against the public keys of a KeySet. It
// accepts EdDSA and ES256 and insists the header alg matches the key type
// found under the kid.
type KeySetVerifier struct {
	keys   *KeySet
	issuer string
	parser *jwt.Parser
}

// NewVerifier returns a Verifier backed by keys. An empty issuer skips the
// iss check.
func NewVerifier(keys *KeySet, issuer string) *KeySetVerifier {
	return &KeySetVerifier{
		keys:   keys,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{AlgorithmEdDSA, AlgorithmES256}),
			jwt.WithoutClaimsValidation(), // exp/nbf/iss are checked below with our own errors
		),
	}
}

func (v *KeySetVerifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid", ErrMalformed)
	}

	pub, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}

	switch pub.(type) {
	case ed25519.PublicKey:
		if t.Method.Alg() != AlgorithmEdDSA {
			return nil, ErrAlgMismatch
		}
	case *ecdsa.PublicKey:
		if t.Method.Alg() != AlgorithmES256 {
			return nil, ErrAlgMismatch
		}
	default:
		return nil, ErrAlgMismatch
	}
	return pub, nil
}

// Verify checks the signature, issuer, exp and nbf of tokenStr.
func (v *KeySetVerifier) Verify(tokenStr string) (Claims, error) {
	var claims Claims
	token, err := v.parser.ParseWithClaims(tokenStr, &claims, v.keyFunc)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownKID), errors.Is(err, ErrAlgMismatch), errors.Is(err, ErrMalformed):
		return Claims{}, err
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSig
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
