// Package sqlite implements the Job Record Store (engine.Store) over
// a single-node SQLite database, grounded on the teacher's
// internal/storage/sql package: plain database/sql, goose migrations
// from an embedded FS, and the same DBConfig shape used for the
// Postgres driver, minus the pool fields a single-writer SQLite
// connection doesn't need.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DBConfig configures the SQLite-backed store. Path may be a file
// path or ":memory:" for tests.
type DBConfig struct {
	Path string
}

// NewStore opens dbPath with WAL mode and foreign keys enabled,
// applies embedded goose migrations, and returns a ready Store.
// SQLite allows only one writer at a time, so the pool is capped to a
// single open connection — mirrors the teacher's SQLite DSN pragmas
// (_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on) applied as
// connection-string parameters instead of Exec'd pragmas.
func NewStore(ctx context.Context, cfg DBConfig) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("jobengine/store/sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("jobengine/store/sqlite: ping: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("jobengine/store/sqlite: migrations failed: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
