package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Enforce single connection to avoid SQLITE_BUSY errors during concurrent writes
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneCache removes cache entries of the given type that are older than the
// TTL. Expired rows are already invisible to readers; this reclaims the space.
// Returns the number of rows removed.
func (d *DB) PruneCache(cacheType string, olderThan time.Duration) (int64, error) {
	// Format time compatible with SQLite DEFAULT CURRENT_TIMESTAMP (YYYY-MM-DD HH:MM:SS)
	deadline := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	res, err := d.Exec("DELETE FROM cache WHERE cache_type = ? AND updated_at < ?", cacheType, deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneUsage drops usage ledger rows older than the retention window.
func (d *DB) PruneUsage(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC().Format("2006-01-02")
	res, err := d.Exec("DELETE FROM api_usage WHERE day < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			cache_type TEXT NOT NULL DEFAULT '',
			value BLOB,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cache_type_age ON cache (cache_type, updated_at);`,
		`CREATE TABLE IF NOT EXISTS api_usage (
			day TEXT NOT NULL,
			service TEXT NOT NULL,
			success INTEGER NOT NULL DEFAULT 0,
			failure INTEGER NOT NULL DEFAULT 0,
			rate_limited INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (day, service)
		);`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: add cache_type if the table predates typed caching
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('cache') WHERE name='cache_type'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE cache ADD COLUMN cache_type TEXT NOT NULL DEFAULT ''"); err != nil {
			return fmt.Errorf("failed to add cache_type column: %w", err)
		}
	}

	return nil
}
