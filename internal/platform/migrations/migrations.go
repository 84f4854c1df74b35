// Package migrations embeds the schema for the Postgres and SQLite backends
// and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed sqlite/*.sql
var sqliteFS embed.FS

// UpPostgres applies pending Postgres migrations through the pool.
func UpPostgres(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}
	return up(postgresFS, "postgres", "pgx5", driver)
}

// UpSQLite applies pending SQLite migrations to the database file at path.
// It uses its own connection because the driver closes it when done.
func UpSQLite(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("migrations: open sqlite: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("migrations: sqlite driver: %w", err)
	}
	return up(sqliteFS, "sqlite", "sqlite", driver)
}

// Version reports the applied Postgres migration version.
func Version(pool *pgxpool.Pool) (uint, bool, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("migrations: postgres driver: %w", err)
	}
	source, err := iofs.New(postgresFS, "postgres")
	if err != nil {
		return 0, false, fmt.Errorf("migrations: iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return 0, false, fmt.Errorf("migrations: instance: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func up(fsys embed.FS, dir, name string, driver database.Driver) error {
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("migrations: iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		return fmt.Errorf("migrations: instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up %s: %w", dir, err)
	}
	return nil
}
