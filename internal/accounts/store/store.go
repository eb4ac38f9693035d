package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories hang off it so a Tx can hand out the same
// repositories bound to the transaction, and so nobody opens a transaction
// inside another one by accident.
type Store interface {
	Users() Users
	VerificationTokens() Secrets
	MFACodes() Secrets

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. The transaction is rolled back
	// if fn returns an error and committed otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by its numeric id.
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail returns the user registered with exactly this email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ExistsByEmail reports whether any user holds this email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ListUsers returns every user ordered by id.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts u and returns it with the assigned id and timestamps.
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	// UpdateUser overwrites the mutable profile columns of u and bumps
	// updated_at. Returns ErrAlreadyExists when the new email is taken.
	UpdateUser(ctx context.Context, u domain.User) error

	// MarkEmailVerified sets email_verified and bumps updated_at.
	MarkEmailVerified(ctx context.Context, id int64) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, id int64, newHash string) error

	// DeleteUser removes the user and cascades to their secrets.
	DeleteUser(ctx context.Context, id int64) error
}

// Secrets persists single-use secrets. Verification tokens and MFA codes are
// separate tables with the same shape, each served through this interface.
type Secrets interface {
	// CreateSecret inserts a new secret (id is ULID).
	CreateSecret(ctx context.Context, s domain.Secret) error

	// GetSecretByValue looks a secret up by its exact value.
	GetSecretByValue(ctx context.Context, value string) (domain.Secret, error)

	// GetSecretByValueAndUser looks a secret up by (value, owner). Used for
	// codes, which are not globally unique.
	GetSecretByValueAndUser(ctx context.Context, value string, userID int64) (domain.Secret, error)

	// GetLatestSecret returns the most recently created secret of kind for a user.
	GetLatestSecret(ctx context.Context, userID int64, kind domain.SecretKind) (domain.Secret, error)

	// MarkSecretVerified sets verified_at, consuming the secret.
	MarkSecretVerified(ctx context.Context, id string, at time.Time) error

	// DeleteUserSecrets removes every secret of kind owned by the user.
	DeleteUserSecrets(ctx context.Context, userID int64, kind domain.SecretKind) error

	// DeleteExpiredSecrets removes secrets whose expires_at is before the
	// cutoff and returns how many were deleted.
	DeleteExpiredSecrets(ctx context.Context, before time.Time) (int64, error)
}
