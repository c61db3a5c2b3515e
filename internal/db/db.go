// Package db provides the SQLite record store behind the toodle boundary.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryURI opens a private in-memory store.
const MemoryURI = ":memory:"

// Options tunes how a store is opened.
type Options struct {
	// BusyTimeoutMS is how long SQLite waits on a locked database.
	BusyTimeoutMS int
}

// DB wraps the sql.DB with toodle-specific configuration.
type DB struct {
	*sql.DB
	uri string
}

// Open opens a SQLite database at uri. An empty uri or ":memory:" opens an
// in-memory database. The database is opened with:
// - WAL mode for file-backed stores
// - Foreign key constraints enabled
// - A busy timeout from opts
func Open(uri string, opts Options) (*DB, error) {
	if uri == "" {
		uri = MemoryURI
	}
	inMemory := uri == MemoryURI || strings.Contains(uri, "mode=memory")

	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(uri), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Open database with modernc.org/sqlite (pure Go, no CGO)
	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if !inMemory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if opts.BusyTimeoutMS > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", opts.BusyTimeoutMS)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	return &DB{DB: db, uri: uri}, nil
}

// OpenAndMigrate opens uri and applies every embedded migration.
func OpenAndMigrate(uri string, opts Options) (*DB, error) {
	database, err := Open(uri, opts)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Migrate brings the schema up to date using the embedded migrations.
func (db *DB) Migrate() error {
	migrator, err := NewEmbeddedMigrator(db.DB)
	if err != nil {
		return err
	}
	if err := migrator.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// URI returns the location the database was opened from.
func (db *DB) URI() string {
	return db.uri
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
