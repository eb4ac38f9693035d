package postgres

import (
	"errors"
	"strings"

	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/postgres/migrations"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

// migrateURL rewrites a postgres:// DSN to the pgx5:// scheme the
// golang-migrate pgx/v5 driver registers under.
func migrateURL(dsn string) string {
	if rest, found := strings.CutPrefix(dsn, "postgres://"); found {
		return "pgx5://" + rest
	}
	if rest, found := strings.CutPrefix(dsn, "postgresql://"); found {
		return "pgx5://" + rest
	}
	return dsn
}

// ApplyMigrations applies any pending embedded migrations. golang-migrate
// opens its own connection from the DSN rather than borrowing the pool.
func (s *Store) ApplyMigrations() error {
	errb := oops.In("store.postgres").Code("MIGRATION_FAILED")

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return errb.With("step", "source").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(s.dsn))
	if err != nil {
		_ = src.Close()
		return errb.With("step", "init").Wrap(err)
	}
	defer m.Close() //nolint:errcheck // close errors after a successful Up are not actionable

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errb.With("step", "up").Wrap(err)
	}
	return nil
}
