package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"fernweh/pkg/db"
	"fernweh/pkg/model"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	CacheStore
	UsageStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Timestamps are stored pre-formatted in UTC so they compare lexicographically
// against SQLite's DEFAULT CURRENT_TIMESTAMP (YYYY-MM-DD HH:MM:SS).
const timeLayout = "2006-01-02 15:04:05"

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool) {
	var val []byte
	var err error
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge).UTC().Format(timeLayout)
		err = s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ? AND updated_at >= ?", key, cutoff).Scan(&val)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		// Treat read errors as misses; the caller refetches
		return nil, false
	}

	// Transparent decompression
	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		decompressed, err := decompress(val)
		if err == nil {
			return decompressed, true
		}
		// Not actually gzipped or corrupted; fall through with the raw bytes
	}

	return val, true
}

func (s *SQLiteStore) HasCache(ctx context.Context, key string, maxAge time.Duration) (bool, error) {
	var exists int
	var err error
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge).UTC().Format(timeLayout)
		err = s.db.QueryRowContext(ctx, "SELECT 1 FROM cache WHERE key = ? AND updated_at >= ?", key, cutoff).Scan(&exists)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT 1 FROM cache WHERE key = ?", key).Scan(&exists)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) SetCache(ctx context.Context, key, cacheType string, val []byte) error {
	// Transparent compression
	compressed, err := compress(val)
	if err == nil {
		val = compressed
	}

	query := `INSERT OR REPLACE INTO cache (key, cache_type, value, updated_at) VALUES (?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, key, cacheType, val, time.Now().UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) DeleteCache(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key)
	return err
}

func (s *SQLiteStore) DeleteCachePrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key LIKE ?", prefix+"%")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) ListCacheKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM cache WHERE key LIKE ?", prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) CacheStats(ctx context.Context) ([]CacheTypeStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_type, COUNT(*), COALESCE(SUM(LENGTH(value)), 0)
		 FROM cache GROUP BY cache_type ORDER BY cache_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CacheTypeStats
	for rows.Next() {
		var st CacheTypeStats
		if err := rows.Scan(&st.Type, &st.Count, &st.Bytes); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	// Pool for generic byte buffers
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	// Get Buffer
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	// Get Writer
	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)

	// Reset Writer to write to our buffer
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- Usage ---

func (s *SQLiteStore) AddUsage(ctx context.Context, day string, u model.Usage) error {
	query := `INSERT INTO api_usage (day, service, success, failure, rate_limited)
			  VALUES (?, ?, ?, ?, ?)
			  ON CONFLICT(day, service) DO UPDATE SET
			  success = success + excluded.success,
			  failure = failure + excluded.failure,
			  rate_limited = rate_limited + excluded.rate_limited`

	_, err := s.db.ExecContext(ctx, query, day, u.Service, u.Success, u.Failure, u.RateLimited)
	return err
}

func (s *SQLiteStore) GetUsage(ctx context.Context, day string) ([]model.Usage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT service, success, failure, rate_limited FROM api_usage WHERE day = ? ORDER BY service", day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usages []model.Usage
	for rows.Next() {
		var u model.Usage
		if err := rows.Scan(&u.Service, &u.Success, &u.Failure, &u.RateLimited); err != nil {
			return nil, err
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}

func (s *SQLiteStore) GetUsageSince(ctx context.Context, fromDay string) (map[string][]model.Usage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT day, service, success, failure, rate_limited FROM api_usage WHERE day >= ? ORDER BY day, service", fromDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string][]model.Usage)
	for rows.Next() {
		var day string
		var u model.Usage
		if err := rows.Scan(&day, &u.Service, &u.Success, &u.Failure, &u.RateLimited); err != nil {
			return nil, err
		}
		byDay[day] = append(byDay[day], u)
	}
	return byDay, rows.Err()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, updated_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
