package postgres

import (
	"context"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, subscription_tier,
	email_verified, account_locked, enabled, mfa_enabled, created_at, updated_at`

type usersRepo struct {
	q querier
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u          domain.User
		role, tier string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role, &tier,
		&u.EmailVerified, &u.AccountLocked, &u.Enabled, &u.MFAEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.SubscriptionTier = domain.SubscriptionTier(tier)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	err := r.q.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, role, subscription_tier,
			email_verified, account_locked, enabled, mfa_enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), string(u.SubscriptionTier),
		u.EmailVerified, u.AccountLocked, u.Enabled, u.MFAEnabled,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapConstraint(err)
	}
	return u, nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET email = $1, password_hash = $2, first_name = $3, last_name = $4, role = $5,
			subscription_tier = $6, email_verified = $7, account_locked = $8, enabled = $9,
			mfa_enabled = $10, updated_at = now()
		 WHERE id = $11`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), string(u.SubscriptionTier),
		u.EmailVerified, u.AccountLocked, u.Enabled, u.MFAEnabled, u.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return expectOne(tag, nil)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, id int64) error {
	return expectOne(r.q.Exec(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = now() WHERE id = $1`, id))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id int64, newHash string) error {
	return expectOne(r.q.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, newHash, id))
}

func (r *usersRepo) DeleteUser(ctx context.Context, id int64) error {
	return expectOne(r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id))
}
