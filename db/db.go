// ABOUTME: Database connection management and initialization
// ABOUTME: Handles opening the SQLite store in WAL mode and wraps data-access failures
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrDataAccess marks failures reading or writing the persistent store.
	ErrDataAccess = errors.New("data access error")
	// ErrClaimLost means the row is no longer held by the caller's claim token.
	ErrClaimLost = errors.New("claim lost")
)

func OpenDatabase(path string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataAccess, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataAccess, err)
	}

	// One writer avoids "database is locked" under the worker pool
	db.SetMaxOpenConns(1)

	if err := InitSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrDataAccess, err)
	}

	return db, nil
}

// OpenMemory opens a private in-memory database with the schema applied.
func OpenMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := InitSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func dataAccess(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDataAccess, op, err)
}
