package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds public verification keys by kid. The accounts service fills it
// from its own signers; SDK callers fill it from the published JWKS.
type KeySet struct {
	mu   sync.RWMutex
	jwks []JWK
	pub  map[string]any // kid: ed25519.PublicKey | *ecdsa.PublicKey
}

func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]any)}
}

// AddSigner publishes the signer's public half.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK adds j, replacing any key already published under j.Kid.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := publicKeyOf(j)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, dup := k.pub[j.Kid]; dup {
		k.jwks = slices.DeleteFunc(k.jwks, func(old JWK) bool { return old.Kid == j.Kid })
	}
	k.pub[j.Kid] = key
	k.jwks = append(k.jwks, j)
	return nil
}

func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a copy of the published keys.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return JWKS{Keys: slices.Clone(k.jwks)}
}

func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}

// ResetFromJWKS swaps in the keys of a fetched JWKS. Nothing changes when
// any key in it is unusable.
func (k *KeySet) ResetFromJWKS(set JWKS) error {
	pub := make(map[string]any, len(set.Keys))
	for _, j := range set.Keys {
		key, err := publicKeyOf(j)
		if err != nil {
			return fmt.Errorf("jwtx: key %q: %w", j.Kid, err)
		}
		pub[j.Kid] = key
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = pub
	k.jwks = slices.Clone(set.Keys)
	return nil
}

// publicKeyOf decodes the two key types the signers produce: Ed25519 (OKP)
// and P-256 (EC).
func publicKeyOf(j JWK) (any, error) {
	switch {
	case j.Kty == "OKP" && j.Crv == "Ed25519":
		x, err := b64Field("x", j.X)
		if err != nil {
			return nil, err
		}
		if len(x) != ed25519.PublicKeySize {
			return nil, errors.New("jwtx: invalid Ed25519 public key size")
		}
		return ed25519.PublicKey(x), nil

	case j.Kty == "EC" && j.Crv == "P-256":
		x, err := b64Field("x", j.X)
		if err != nil {
			return nil, err
		}
		y, err := b64Field("y", j.Y)
		if err != nil {
			return nil, err
		}
		pub := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}
		if _, err := pub.ECDH(); err != nil {
			return nil, fmt.Errorf("jwtx: invalid P-256 key: %w", err)
		}
		return pub, nil
	}
	return nil, fmt.Errorf("jwtx: unsupported key type %s/%s", j.Kty, j.Crv)
}

func b64Field(name, v string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decode %s: %w", name, err)
	}
	return b, nil
}
