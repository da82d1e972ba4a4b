// Package store implements the durable local persistence layer, backed by
// GORM over the pure-Go SQLite driver. It holds three record collections:
// cached remote reads, the goal mirror, and the operation queue. This file
// contains database bootstrapping helpers and schema migrations.
//
// The store is the only shared mutable resource between the queue manager,
// the cached-fetch service, and the goal view-model. Every exported function
// is an atomic single-key upsert, delete, or read, so callers need no
// locking beyond what SQLite itself provides.
//
// Failure semantics: storage-level errors (corrupt file, exhausted disk)
// are propagated to the caller unwrapped where GORM surfaces them. Losing a
// queued mutation is unacceptable, so nothing in this package swallows an
// error to make an operation "succeed".
package store

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/tbourn/go-goal-sync/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layers.
var ErrNotFound = gorm.ErrRecordNotFound

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or upgrades the three local collections.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Goal{},
		&domain.CachedEntry{},
		&domain.QueuedOperation{},
	)
}
