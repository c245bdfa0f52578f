package testing

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// CreateTestDB creates an in-memory SQLite index database with foreign keys on.
// Cleanup is registered with t.Cleanup.
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	// Each pooled connection to :memory: would be a separate database
	return openTestDB(t, "file::memory:?_foreign_keys=on", 1)
}

// CreateFileTestDB creates a SQLite database file in t.TempDir, opened the way
// the index store opens it, and returns the handle and its path.
func CreateFileTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	return openTestDB(t, "file:"+path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", 0), path
}

func openTestDB(t *testing.T, dsn string, maxConns int) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil || fk != 1 {
		t.Fatalf("Foreign keys not enabled on test database (err=%v)", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}
