package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

const (
	tableVerificationTokens = "verification_tokens"
	tableMFACodes           = "mfa_codes"
)

const secretColumns = `id, user_id, kind, secret, expires_at, verified_at, created_at`

// secretsRepo serves both secret tables; table is always one of the
// constants above, never user input.
type secretsRepo struct {
	q     dbtx
	table string
}

func scanSecret(row rowScanner) (domain.Secret, error) {
	var (
		s                    domain.Secret
		kind                 string
		expiresAt, createdAt string
		verifiedAt           sql.NullString
	)
	if err := row.Scan(&s.ID, &s.UserID, &kind, &s.Value, &expiresAt, &verifiedAt, &createdAt); err != nil {
		return domain.Secret{}, err
	}
	s.Kind = domain.SecretKind(kind)

	var err error
	if s.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return domain.Secret{}, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Secret{}, err
	}
	if s.VerifiedAt, err = mapNullTimePtr(verifiedAt); err != nil {
		return domain.Secret{}, err
	}
	return s, nil
}

func (r *secretsRepo) CreateSecret(ctx context.Context, s domain.Secret) error {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.q.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, user_id, kind, secret, expires_at, verified_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`, r.table),
		s.ID, s.UserID, string(s.Kind), s.Value,
		formatTime(s.ExpiresAt), mapOptionalTime(s.VerifiedAt), formatTime(createdAt),
	)
	return mapConstraint(err)
}

func (r *secretsRepo) GetSecretByValue(ctx context.Context, value string) (domain.Secret, error) {
	row := r.q.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE secret = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		secretColumns, r.table), value)
	s, err := scanSecret(row)
	if err != nil {
		return domain.Secret{}, mapNotFound(err)
	}
	return s, nil
}

func (r *secretsRepo) GetSecretByValueAndUser(ctx context.Context, value string, userID int64) (domain.Secret, error) {
	row := r.q.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE secret = ? AND user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		secretColumns, r.table), value, userID)
	s, err := scanSecret(row)
	if err != nil {
		return domain.Secret{}, mapNotFound(err)
	}
	return s, nil
}

func (r *secretsRepo) GetLatestSecret(ctx context.Context, userID int64, kind domain.SecretKind) (domain.Secret, error) {
	row := r.q.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE user_id = ? AND kind = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		secretColumns, r.table), userID, string(kind))
	s, err := scanSecret(row)
	if err != nil {
		return domain.Secret{}, mapNotFound(err)
	}
	return s, nil
}

func (r *secretsRepo) MarkSecretVerified(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.q.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET verified_at = ? WHERE id = ? AND verified_at IS NULL`, r.table),
		formatTime(at), id,
	))
}

func (r *secretsRepo) DeleteUserSecrets(ctx context.Context, userID int64, kind domain.SecretKind) error {
	_, err := r.q.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE user_id = ? AND kind = ?`, r.table),
		userID, string(kind),
	)
	return err
}

func (r *secretsRepo) DeleteExpiredSecrets(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE expires_at < ?`, r.table),
		formatTime(before),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
