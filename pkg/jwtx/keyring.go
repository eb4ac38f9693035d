package jwtx

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
)

// KeyRingOptions configures NewKeyRing.
type KeyRingOptions struct {
	// Algorithm is AlgorithmEdDSA (default) or AlgorithmES256.
	Algorithm string

	// Issuer is stamped into and required on every token.
	Issuer string

	// NumKeys is how many ephemeral keys to generate. Defaults to 1, capped
	// at 10. Ignored when KeyFile is set.
	NumKeys int

	// KeyFile, when set, holds a PKCS8 PEM signing key that survives
	// restarts. It is created on first start.
	KeyFile string
}

// KeyRing owns the signing keys of one service instance and the KeySet
// built from them. Ephemeral keys are lost on restart, which logs every
// session out; use KeyFile to keep sessions across restarts.
type KeyRing struct {
	KeySet    *KeySet
	Verifier  Verifier
	Issuer    string
	algorithm string
	signers   []Signer
}

func NewKeyRing(opts KeyRingOptions) (*KeyRing, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmEdDSA
	}

	var signers []Signer
	if opts.KeyFile != "" {
		s, err := loadOrCreateSigner(opts.Algorithm, opts.KeyFile)
		if err != nil {
			return nil, err
		}
		signers = append(signers, s)
	} else {
		n := min(max(opts.NumKeys, 1), 10)
		for i := range n {
			pemKey, err := generateKey(opts.Algorithm)
			if err != nil {
				return nil, err
			}
			kid, err := keyID(opts.Algorithm, pemKey)
			if err != nil {
				return nil, err
			}
			s, err := NewSigner(opts.Algorithm, kid, pemKey)
			if err != nil {
				return nil, fmt.Errorf("jwtx: signer %d: %w", i+1, err)
			}
			signers = append(signers, s)
		}
	}

	keyset := NewKeySet()
	for _, s := range signers {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if err := keyset.AddSigner(s); err != nil {
			return nil, fmt.Errorf("jwtx: add %s to keyset: %w", s.KID(), err)
		}
	}

	return &KeyRing{
		KeySet:    keyset,
		Verifier:  NewVerifier(keyset, opts.Issuer),
		Issuer:    opts.Issuer,
		algorithm: opts.Algorithm,
		signers:   signers,
	}, nil
}

func (r *KeyRing) Algorithm() string { return r.algorithm }

func (r *KeyRing) IsReady() bool { return len(r.signers) > 0 && r.KeySet.IsReady() }

// Signer returns one of the active signers at random.
func (r *KeyRing) Signer() Signer {
	if len(r.signers) == 1 {
		return r.signers[0]
	}
	return r.signers[rand.IntN(len(r.signers))] // #nosec G404 - load spreading, not security
}

// Sign signs claims with a random active key.
func (r *KeyRing) Sign(claims Claims) (string, error) {
	return r.Signer().Sign(claims)
}

func generateKey(algorithm string) ([]byte, error) {
	switch algorithm {
	case AlgorithmEdDSA:
		return cryptox.GenerateEd25519Key()
	case AlgorithmES256:
		return cryptox.GenerateES256Key()
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: EdDSA, ES256)", algorithm)
	}
}

// keyID derives a stable kid from the public key, so a persisted key keeps
// its kid across restarts: "accounts-" + base64url(sha256(SPKI))[:16].
func keyID(algorithm string, pemKey []byte) (string, error) {
	priv, err := parsePKCS8(pemKey)
	if err != nil {
		return "", err
	}
	signer, ok := priv.(crypto.Signer)
	if !ok {
		return "", fmt.Errorf("jwtx: %s key has no public half", algorithm)
	}
	der, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return "", fmt.Errorf("jwtx: marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return "accounts-" + base64.RawURLEncoding.EncodeToString(sum[:])[:16], nil
}

func loadOrCreateSigner(algorithm, path string) (Signer, error) {
	path = filepath.Clean(path)

	pemKey, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		if pemKey, err = generateKey(algorithm); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("jwtx: create key dir: %w", err)
		}
		if err := os.WriteFile(path, pemKey, 0o600); err != nil {
			return nil, fmt.Errorf("jwtx: write signing key: %w", err)
		}
	default:
		return nil, fmt.Errorf("jwtx: read signing key: %w", err)
	}

	kid, err := keyID(algorithm, pemKey)
	if err != nil {
		return nil, err
	}
	return NewSigner(algorithm, kid, pemKey)
}
