package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/idx"
)

// LookupMode selects how a presented secret is matched to its record.
type LookupMode int

const (
	// LookupBySecret matches on the value alone. Values must be globally
	// unique, which opaque tokens are.
	LookupBySecret LookupMode = iota

	// LookupBySecretAndOwner matches on (value, user). Short numeric codes
	// collide across users, so the owner is part of the key.
	LookupBySecretAndOwner
)

var errOwnerRequired = errors.New("secret lookup requires an owner")

// SecretIssuer issues, validates and consumes single-use expiring secrets.
// Verification links and MFA codes are both SecretIssuers that differ only
// in Generate, Lookup and Repo.
type SecretIssuer struct {
	Generate func() (string, error)
	Lookup   LookupMode
	TTL      time.Duration

	// Repo picks the table the secrets live in.
	Repo func(store.Store) store.Secrets

	// Now defaults to time.Now.
	Now func() time.Time
}

func (i *SecretIssuer) now() time.Time {
	if i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}

// Issue deletes every secret of kind the user holds and stores a fresh one.
// Both writes happen in one transaction, joining st if it already is one.
func (i *SecretIssuer) Issue(ctx context.Context, st store.Store, userID int64, kind domain.SecretKind) (domain.Secret, error) {
	var secret domain.Secret
	err := inTx(ctx, st, func(tx store.Tx) error {
		repo := i.Repo(tx)
		if err := repo.DeleteUserSecrets(ctx, userID, kind); err != nil {
			return fault("delete previous secrets", err)
		}

		value, err := i.Generate()
		if err != nil {
			return fault("generate secret", err)
		}

		now := i.now()
		secret = domain.Secret{
			ID:        idx.NewAt(now).String(),
			UserID:    userID,
			Kind:      kind,
			Value:     value,
			ExpiresAt: now.Add(i.TTL),
			CreatedAt: now,
		}
		if err := repo.CreateSecret(ctx, secret); err != nil {
			return fault("store secret", err)
		}
		return nil
	})
	if err != nil {
		return domain.Secret{}, err
	}
	return secret, nil
}

// Validate looks value up on its own and checks it is still redeemable.
// It does not consume the secret.
func (i *SecretIssuer) Validate(ctx context.Context, st store.Store, value string) (domain.Secret, error) {
	return i.find(ctx, st, 0, value)
}

// ValidateFor is Validate restricted to secrets owned by userID.
func (i *SecretIssuer) ValidateFor(ctx context.Context, st store.Store, userID int64, value string) (domain.Secret, error) {
	return i.find(ctx, st, userID, value)
}

func (i *SecretIssuer) find(ctx context.Context, st store.Store, userID int64, value string) (domain.Secret, error) {
	repo := i.Repo(st)

	var (
		secret domain.Secret
		err    error
	)
	switch i.Lookup {
	case LookupBySecretAndOwner:
		if userID == 0 {
			return domain.Secret{}, fault("lookup secret", errOwnerRequired)
		}
		secret, err = repo.GetSecretByValueAndUser(ctx, value, userID)
	default:
		secret, err = repo.GetSecretByValue(ctx, value)
		if err == nil && userID != 0 && secret.UserID != userID {
			err = store.ErrNotFound
		}
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.Secret{}, ErrTokenNotFound
	}
	if err != nil {
		return domain.Secret{}, fault("lookup secret", err)
	}

	// Existence, then use, then expiry: a used and expired secret reports used.
	if secret.IsConsumed() {
		return domain.Secret{}, ErrTokenAlreadyUsed
	}
	if secret.IsExpired(i.now()) {
		return domain.Secret{}, ErrTokenExpired
	}
	return secret, nil
}

// Consume marks a validated secret as used. Losing a race with another
// consumer of the same secret yields ErrTokenAlreadyUsed.
func (i *SecretIssuer) Consume(ctx context.Context, st store.Store, secret domain.Secret) error {
	err := i.Repo(st).MarkSecretVerified(ctx, secret.ID, i.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrTokenAlreadyUsed
	}
	if err != nil {
		return fault("consume secret", err)
	}
	return nil
}

// Latest returns the newest secret of kind for the user, consumed or not.
func (i *SecretIssuer) Latest(ctx context.Context, st store.Store, userID int64, kind domain.SecretKind) (domain.Secret, error) {
	secret, err := i.Repo(st).GetLatestSecret(ctx, userID, kind)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Secret{}, ErrTokenNotFound
	}
	if err != nil {
		return domain.Secret{}, fault("latest secret", err)
	}
	return secret, nil
}

// PurgeExpired deletes secrets that expired before now.
func (i *SecretIssuer) PurgeExpired(ctx context.Context, st store.Store) (int64, error) {
	n, err := i.Repo(st).DeleteExpiredSecrets(ctx, i.now())
	if err != nil {
		return 0, fault("purge expired secrets", err)
	}
	return n, nil
}

// inTx runs fn in st when st is already a transaction, otherwise in a new one.
func inTx(ctx context.Context, st store.Store, fn func(tx store.Tx) error) error {
	if tx, ok := st.(store.Tx); ok {
		return fn(tx)
	}
	return st.WithTx(ctx, fn)
}
