package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/jackc/pgx/v5"
)

const (
	tableVerificationTokens = "verification_tokens"
	tableMFACodes           = "mfa_codes"
)

const secretColumns = `id, user_id, kind, secret, expires_at, verified_at, created_at`

// secretsRepo serves both secret tables; table is always one of the
// constants above, never user input.
type secretsRepo struct {
	q     querier
	table string
}

func scanSecret(row pgx.Row) (domain.Secret, error) {
	var (
		s    domain.Secret
		kind string
	)
	if err := row.Scan(&s.ID, &s.UserID, &kind, &s.Value, &s.ExpiresAt, &s.VerifiedAt, &s.CreatedAt); err != nil {
		return domain.Secret{}, err
	}
	s.Kind = domain.SecretKind(kind)
	return s, nil
}

func (r *secretsRepo) CreateSecret(ctx context.Context, s domain.Secret) error {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.q.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, user_id, kind, secret, expires_at, verified_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`, r.table),
		s.ID, s.UserID, string(s.Kind), s.Value, s.ExpiresAt, s.VerifiedAt, createdAt,
	)
	return mapConstraint(err)
}

func (r *secretsRepo) GetSecretByValue(ctx context.Context, value string) (domain.Secret, error) {
	s, err := scanSecret(r.q.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE secret = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		secretColumns, r.table), value))
	if err != nil {
		return domain.Secret{}, mapNotFound(err)
	}
	return s, nil
}

func (r *secretsRepo) GetSecretByValueAndUser(ctx context.Context, value string, userID int64) (domain.Secret, error) {
	s, err := scanSecret(r.q.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE secret = $1 AND user_id = $2 ORDER BY created_at DESC, id DESC LIMIT 1`,
		secretColumns, r.table), value, userID))
	if err != nil {
		return domain.Secret{}, mapNotFound(err)
	}
	return s, nil
}

func (r *secretsRepo) GetLatestSecret(ctx context.Context, userID int64, kind domain.SecretKind) (domain.Secret, error) {
	s, err := scanSecret(r.q.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE user_id = $1 AND kind = $2 ORDER BY created_at DESC, id DESC LIMIT 1`,
		secretColumns, r.table), userID, string(kind)))
	if err != nil {
		return domain.Secret{}, mapNotFound(err)
	}
	return s, nil
}

func (r *secretsRepo) MarkSecretVerified(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.q.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET verified_at = $1 WHERE id = $2 AND verified_at IS NULL`, r.table), at, id))
}

func (r *secretsRepo) DeleteUserSecrets(ctx context.Context, userID int64, kind domain.SecretKind) error {
	_, err := r.q.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE user_id = $1 AND kind = $2`, r.table), userID, string(kind))
	return err
}

func (r *secretsRepo) DeleteExpiredSecrets(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE expires_at < $1`, r.table), before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
