package sqlite

import (
	"errors"

	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

// ApplyMigrations applies any pending migrations embedded in the binary to
// the store's database.
func (s *Store) ApplyMigrations() error {
	errb := oops.In("store.sqlite").Code("MIGRATION_FAILED")

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return errb.With("step", "driver").Wrap(err)
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return errb.With("step", "source").Wrap(err)
	}

	instance, err := migrate.NewWithInstance("iofs", src, "", driver)
	if err != nil {
		return errb.With("step", "init").Wrap(err)
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errb.With("step", "up").Wrap(err)
	}

	return nil
}
