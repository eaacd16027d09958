package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// migrate applies pending schema migrations.
//
// Postgres migrations run on a separate connection, as the migrate driver
// closes its database on Close. Sqlite migrations share db.conn so that
// in-memory databases see the schema; m.Close is skipped in that case.
func (db *DB) migrate(opts Options) error {
	var (
		driver database.Driver
		err    error
	)
	switch db.driver {
	case DriverPostgres:
		migrateDB, err := sql.Open("postgres", opts.DSN)
		if err != nil {
			return fmt.Errorf("open migration database: %w", err)
		}
		driver, err = postgres.WithInstance(migrateDB, &postgres.Config{})
		if err != nil {
			migrateDB.Close()
			return fmt.Errorf("create postgres driver: %w", err)
		}
	default:
		driver, err = sqlite.WithInstance(db.conn, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("create sqlite driver: %w", err)
		}
	}

	src, err := iofs.New(migrationsFS, "migrations/"+db.driver)
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.driver, driver)
	if err != nil {
		src.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if db.driver == DriverPostgres {
		defer m.Close()
	} else {
		defer src.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply: %w", err)
	}

	return nil
}
