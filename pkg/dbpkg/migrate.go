package dbpkg

import (
	"database/sql"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	// Registers the file:// migration source.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies all up migrations found at migrationURL, e.g. "file://configs/db/migration".
//
// It returns true if at least one migration was applied.
func Migrate(db *sql.DB, migrationURL string) (bool, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return false, err
	}

	m, err := migrate.NewWithDatabaseInstance(migrationURL, "postgres", driver)
	if err != nil {
		return false, err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
