package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

// Migrate applies pending migrations to the configured database and exits.
func Migrate(ctx context.Context, cfg Config) error {
	logger := NewLogger(cfg)

	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if err := db.ApplyMigrations(); err != nil {
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied successfully", "driver", cfg.DatabaseDriver)
	return nil
}

// Sweep deletes expired verification tokens and MFA codes once.
func Sweep(ctx context.Context, cfg Config) (service.SweepResult, error) {
	logger := NewLogger(cfg)

	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return service.SweepResult{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	return service.NewHousekeepingService(db, logger, cfg.HousekeepingInterval).Sweep(ctx)
}

// Promote grants the ADMIN role to the account registered under email. It
// is how the first administrator is made.
func Promote(ctx context.Context, cfg Config, email string) (domain.User, error) {
	logger := NewLogger(cfg)

	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	var user domain.User
	err = db.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.Users().GetUserByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return service.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if user.Role == domain.RoleAdmin {
			return nil
		}
		user.Role = domain.RoleAdmin
		return tx.Users().UpdateUser(ctx, user)
	})
	if err != nil {
		return domain.User{}, err
	}

	logger.Info("user promoted", "user_id", user.ID, "role", user.Role)
	return user, nil
}
