package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers postgres:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lotfimay/FollowUP-GRP4/migrations"
)

// Migration directions.
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// Migrate applies the embedded schema migrations in the given direction.
// Down rolls back a single step.
func Migrate(databaseURL, direction string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Steps(-1)
	default:
		return fmt.Errorf("unknown migration direction: %s", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", verr)
	}
	slog.Info("migrations applied", "direction", direction, "version", version, "dirty", dirty)
	return nil
}
