// Package store persists the run history: one row per scenario per run, kept
// in DuckDB.
package store

import "database/sql"

// Store owns the database connection and the repositories built on it.
type Store struct {
	db   *sql.DB
	runs *RunStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:   db,
		runs: NewRunStore(newTimedDB(db)),
	}
}

func (s *Store) Runs() *RunStore {
	return s.runs
}

func (s *Store) Close() error {
	return s.db.Close()
}
