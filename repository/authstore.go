// Package repository implements access to the authoritative relational
// store: the set of users, jobs, and their five wildcard schedule tables
// that this daemon treats as exogenously managed (created and mutated by a
// separate web application) and only reads from or writes narrow updates
// to.
package repository

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// CivilTime is the per-timezone wall-clock decomposition of a tick's
// forTime, as produced by the matcher and consumed by MatchJobs. Weekday
// uses Go's native convention (Sunday = 0), unlike the original daemon's
// cctz-based weekday, which needed a manual remap.
type CivilTime struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	Weekday int
}

// AuthStore is the authoritative store's read/write surface. All queries go
// through Masterminds/squirrel so no user-controlled value is ever
// interpolated into SQL text.
type AuthStore struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

// Open opens a MySQL connection pool for the given DSN. The DSN is built by
// config.Config.MySQLDSN from the mysql_host/user/pass/db/sock config keys.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening authoritative store connection: %w", err)
	}
	return db, nil
}

// NewAuthStore wraps an already-open *sql.DB.
func NewAuthStore(db *sql.DB) *AuthStore {
	return &AuthStore{db: db, qb: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
}

// Bootstrap runs the authoritative store's schema migrations. It is a
// dev/test convenience only — in production the schema is managed by the
// web application this daemon's store is shared with. A blank
// migrationsPath disables it entirely.
func Bootstrap(db *sql.DB, migrationsPath string) error {
	if migrationsPath == "" {
		return nil
	}

	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("initialising migrations: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
