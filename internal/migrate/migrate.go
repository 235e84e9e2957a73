// Package migrate applies the embedded schema migrations with goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed sql
var migrations embed.FS

// Dialect names a supported database.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// goose keeps its dialect and base filesystem in package globals.
var mu sync.Mutex

// Up applies every pending migration for the dialect.
func Up(ctx context.Context, db *sql.DB, dialect Dialect) error {
	return run(dialect, func(dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, dialect Dialect) error {
	return run(dialect, func(dir string) error {
		return goose.DownContext(ctx, db, dir)
	})
}

// Version reports the current schema version.
func Version(ctx context.Context, db *sql.DB, dialect Dialect) (int64, error) {
	var v int64
	err := run(dialect, func(string) error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, db)
		return err
	})
	return v, err
}

func run(dialect Dialect, fn func(dir string) error) error {
	gooseDialect, dir, err := resolve(dialect)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("migrate: set dialect: %w", err)
	}
	if err := fn(dir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func resolve(d Dialect) (string, string, error) {
	switch d {
	case SQLite:
		return "sqlite3", "sql/sqlite", nil
	case Postgres:
		return "postgres", "sql/postgres", nil
	default:
		return "", "", fmt.Errorf("migrate: unsupported dialect %q", d)
	}
}
