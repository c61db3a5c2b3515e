// Package db tests for database connection management.
package db

import (
	"path/filepath"
	"testing"
)

// TestOpen verifies database opening with proper configuration.
func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "toodle.db")

	db, err := Open(dbPath, Options{BusyTimeoutMS: 1000})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.URI() != dbPath {
		t.Errorf("URI() = %q, want %q", db.URI(), dbPath)
	}

	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		t.Errorf("Database query failed: %v", err)
	}
	if result != 1 {
		t.Errorf("Expected 1, got %d", result)
	}

	var walMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&walMode); err != nil {
		t.Errorf("Failed to check WAL mode: %v", err)
	}
	if walMode != "wal" {
		t.Errorf("WAL mode not enabled, got: %s", walMode)
	}

	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Errorf("Failed to check foreign keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Errorf("Foreign keys not enabled, got: %d", fkEnabled)
	}

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Errorf("Failed to check busy timeout: %v", err)
	}
	if busy != 1000 {
		t.Errorf("busy_timeout = %d, want 1000", busy)
	}
}

// TestOpen_memory verifies the empty uri opens a private in-memory store.
func TestOpen_memory(t *testing.T) {
	db, err := Open("", Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.URI() != MemoryURI {
		t.Errorf("URI() = %q, want %q", db.URI(), MemoryURI)
	}
	if _, err := db.Exec("CREATE TABLE t (x INTEGER)"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO t VALUES (1)"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n); err != nil || n != 1 {
		t.Errorf("in-memory table lost rows: n=%d err=%v", n, err)
	}
}

// TestOpen_invalidDataDir verifies error when data directory cannot be created.
func TestOpen_invalidDataDir(t *testing.T) {
	_, err := Open("/dev/null/invalid_path/that/cannot/be/created/toodle.db", Options{})
	if err == nil {
		t.Error("Open() with invalid path should return error")
	}
}

// TestOpenAndMigrate verifies the embedded schema is applied.
func TestOpenAndMigrate(t *testing.T) {
	db, err := OpenAndMigrate(MemoryURI, Options{})
	if err != nil {
		t.Fatalf("OpenAndMigrate() failed: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"items", "labels", "item_labels", "categories", "category_items", "conflict_log"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	// Migrating twice is a no-op.
	if err := db.Migrate(); err != nil {
		t.Errorf("second Migrate() failed: %v", err)
	}
}

// TestClose verifies database closing.
func TestClose(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "toodle.db"), Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err == nil {
		t.Error("Query on closed database should fail")
	}
}

// TestDB_reopen verifies data survives a close and reopen.
func TestDB_reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "toodle.db")

	db1, err := OpenAndMigrate(dbPath, Options{})
	if err != nil {
		t.Fatalf("First Open() failed: %v", err)
	}
	if _, err := NewRepository(db1.DB).CreateAndFetchItem("Milk", nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	db2, err := OpenAndMigrate(dbPath, Options{})
	if err != nil {
		t.Fatalf("Second Open() failed: %v", err)
	}
	defer db2.Close()

	items, err := NewRepository(db2.DB).FetchItems()
	if err != nil {
		t.Fatalf("FetchItems() failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Milk" {
		t.Errorf("expected persisted Milk, got %+v", items)
	}
}
