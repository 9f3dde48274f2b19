package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hostncode/apphost-smoke/internal/store/migrations"
)

const memoryDB = ":memory:"

// NewDB opens the DuckDB database at path. Use ":memory:" for a throwaway
// database.
func NewDB(path string) (*sql.DB, error) {
	if path != memoryDB {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	// DuckDB is single-writer; a single connection prevents idle pool
	// connections from blocking WAL checkpointing.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	// keep extensions next to the database instead of ~/.duckdb
	if path != memoryDB {
		extDir := filepath.Dir(path)
		if _, err := conn.Exec(fmt.Sprintf("SET extension_directory = '%s'", extDir)); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("setting extension directory: %w", err)
		}
	}

	return conn, nil
}

// Open opens the run history at path and brings its schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening run history %s: %w", path, err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating run history %s: %w", path, err)
	}
	return NewStore(db), nil
}
