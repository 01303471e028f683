// Package postgres provides pgx/goqu-backed implementations of every
// domain/<entity> repository interface, used when DATABASE_URL is
// configured (SPEC_FULL.md §3.1). Each entity's repository is a thin
// wrapper around the shared *DB connection and goqu query builder,
// grounded on the teacher pack's registry/store/postgres adapter shape.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ConnMaxLifetime = 15 * time.Minute
	MaxIdleConns    = 5
	MaxOpenConns    = 10
)

// DB wraps the shared *sql.DB/goqu.Database pair every entity repository in
// this package is built on.
type DB struct {
	sql  *sql.DB
	goqu *goqu.Database
}

// New opens a pgx connection pool to dsn, runs pending migrations, and
// returns a DB ready to back the repository constructors below.
func New(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open connection: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	sqlDB.SetConnMaxLifetime(ConnMaxLifetime)
	sqlDB.SetMaxIdleConns(MaxIdleConns)
	sqlDB.SetMaxOpenConns(MaxOpenConns)

	if err := migrateUp(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &DB{sql: sqlDB, goqu: goqu.New("postgres", sqlDB)}, nil
}

// newForTesting wraps an already-open *sql.DB (a sqlmock connection) without
// pinging it or running migrations, so repository unit tests can exercise
// the goqu-built SQL without a live database.
func newForTesting(sqlDB *sql.DB) *DB {
	return &DB{sql: sqlDB, goqu: goqu.New("postgres", sqlDB)}
}

func (db *DB) Close() error {
	return db.sql.Close()
}
