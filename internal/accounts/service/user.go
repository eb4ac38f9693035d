package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateUserInput is a partial update; nil fields are left alone.
type UpdateUserInput struct {
	Email      *string
	Password   *string
	FirstName  *string
	LastName   *string
	MFAEnabled *bool
}

// UserService is the administrative view of accounts.
type UserService struct {
	Accounts *AccountService
}

func (s *UserService) store() store.Store { return s.Accounts.Store }

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.store().Users().ListUsers(ctx)
	if err != nil {
		return nil, fault("list users", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.store().Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fault("get user", err)
	}
	return user, nil
}

// Create adds an account on behalf of an administrator. Like Register, the
// account starts unverified and a verification link is emailed.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	var user domain.User
	err := s.Accounts.withTx(ctx, func(tx store.Tx, out *outbox) error {
		var err error
		user, err = createUser(ctx, tx, s.Accounts.Credentials, domain.User{
			Email:            in.Email,
			FirstName:        in.FirstName,
			LastName:         in.LastName,
			Role:             domain.RoleUser,
			SubscriptionTier: domain.TierFree,
			Enabled:          true,
		}, in.Password)
		if err != nil {
			return err
		}
		return s.Accounts.sendVerification(ctx, tx, out, user)
	})
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user created by administrator", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (domain.User, error) {
	var user domain.User
	err := s.Accounts.withTx(ctx, func(tx store.Tx, _ *outbox) error {
		var err error
		user, err = tx.Users().GetUserByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fault("get user", err)
		}

		if in.Email != nil && *in.Email != user.Email {
			taken, err := tx.Users().ExistsByEmail(ctx, *in.Email)
			if err != nil {
				return fault("check email", err)
			}
			if taken {
				return ErrEmailAlreadyExists
			}
			user.Email = *in.Email
		}
		if in.FirstName != nil {
			user.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			user.LastName = *in.LastName
		}
		if in.MFAEnabled != nil {
			user.MFAEnabled = *in.MFAEnabled
		}

		err = tx.Users().UpdateUser(ctx, user)
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrEmailAlreadyExists
		}
		if err != nil {
			return fault("update user", err)
		}

		if in.Password != nil {
			hash, err := s.Accounts.Credentials.HashPassword(*in.Password)
			if err != nil {
				return err
			}
			if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				return fault("update password", err)
			}
		}

		user, err = tx.Users().GetUserByID(ctx, id)
		if err != nil {
			return fault("reload user", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.store().Users().DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fault("delete user", err)
	}
	slogx.FromContext(ctx).Info("user deleted", "user_id", id)
	return nil
}
