// Package store exports compiled bundles into a SQLite index that runtime
// tooling can query by tag-set without loading the artifacts.
package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/logger"
)

// Store is a SQLite bundle index
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// New wraps an already opened and migrated database
func New(db *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: logger.OrNop(log)}
}

// Open opens the SQLite database at path with optimized settings and runs pending migrations
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	log = logger.OrNop(log)
	log.Debugw("Opening database", logger.FieldFile, path)

	// Pragmas go in the DSN so every pooled connection gets them
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}

	if err := Migrate(db, log); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to migrate %s", path)
	}

	log.Infow("Database opened successfully",
		logger.FieldFile, path,
		"wal_mode", true,
		"foreign_keys", true,
	)
	return New(db, log), nil
}

// DB returns the underlying database
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
