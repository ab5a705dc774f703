// Package store provides the persistent key-value store backing the wizard
// session. The durable implementation is SQLite; Memory is the in-process
// fake used by tests and the ephemeral mode.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"clicklit/internal/logging"
)

// Local is the SQLite-backed store. One row per wizard key, JSON blob
// values. A single connection plus a mutex keeps every read-then-write
// sequence within one handler turn free of torn writes.
type Local struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// OpenLocal initializes the SQLite database at the given path.
func OpenLocal(path string) (*Local, error) {
	logging.Store("opening local store at %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS wizard_state (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Local{db: db, dbPath: path}, nil
}

// Get returns the value for key, reporting presence separately.
func (l *Local) Get(key string) ([]byte, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var value []byte
	err := l.db.QueryRow("SELECT value FROM wizard_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores or overwrites the value for key.
func (l *Local) Set(key string, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`
		INSERT INTO wizard_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	logging.StoreDebug("set %s (%d bytes)", key, len(value))
	return nil
}

// Delete removes key. Removing an absent key is not an error.
func (l *Local) Delete(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Exec("DELETE FROM wizard_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix.
func (l *Local) Keys(prefix string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.Query("SELECT key FROM wizard_state WHERE key LIKE ? ORDER BY key", prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the underlying database.
func (l *Local) Close() error {
	return l.db.Close()
}
