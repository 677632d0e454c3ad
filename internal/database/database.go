// Package database opens credential-store connections and applies the
// embedded schema with goose.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/Git-me-Harish/Video-KYC/migrations"
)

// Dialect names a supported credential store.
type Dialect string

const (
	// DialectPostgres selects PostgreSQL through pgx.
	DialectPostgres Dialect = "postgres"
	// DialectSQLite selects a local SQLite file.
	DialectSQLite Dialect = "sqlite"
)

// OpenPostgres connects a pgx pool and verifies it answers.
func OpenPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// OpenSQLite opens path with a busy timeout. SQLite serialises writers, so the
// pool is limited to one connection.
func OpenSQLite(path string) (*sql.DB, error) {
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	db, err := sql.Open("sqlite3", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// MigratePool applies the postgres migrations through a database/sql view of pool.
func MigratePool(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return Migrate(ctx, db, DialectPostgres)
}

// Migrate applies all pending migrations for dialect and reports how many ran.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) (int, error) {
	var gooseDialect goose.Dialect
	switch dialect {
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	case DialectSQLite:
		gooseDialect = goose.DialectSQLite3
	default:
		return 0, fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
	dir, err := fs.Sub(migrations.FS, string(dialect))
	if err != nil {
		return 0, err
	}
	provider, err := goose.NewProvider(gooseDialect, db, dir)
	if err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: %w", err)
	}
	return len(results), nil
}
