// Package migrations provides database migration support for rewind.
//
// It contains a SQLite migration driver compatible with
// ncruces/go-sqlite3 (CGO-free). The stock golang-migrate sqlite3 driver
// imports github.com/mattn/go-sqlite3, which registers under the same
// "sqlite3" driver name and collides with the ncruces driver. The
// driver here implements golang-migrate's database.Driver against a
// plain sql.DB instead.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var embeddedFS embed.FS

// FS returns the embedded filesystem containing migration SQL files.
func FS() fs.FS {
	return embeddedFS
}

// Run applies all pending migrations to the database. A database that is
// already fully migrated is not an error (migrate.ErrNoChange is
// swallowed).
func Run(db *sql.DB) error {
	source, err := iofs.New(embeddedFS, ".")
	if err != nil {
		return err
	}

	driver, err := WithInstance(db, &Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}
	return nil
}
