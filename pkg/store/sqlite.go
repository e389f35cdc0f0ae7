package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLite implements Store using a SQLite database for persistence. This
// backend survives restarts and is suitable for single-instance deployments
// where rate-limit windows, cached responses, and breaker snapshots should
// not reset on every deploy.
//
// SQLite uses a write-ahead log (WAL) for better concurrent read performance.
// Writes serialize in the driver; SQLite supports a single writer.
type SQLite struct {
	db     *sql.DB
	dbPath string
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sentinel_kv (
	key        TEXT PRIMARY KEY,
	value      BLOB,
	count      INTEGER NOT NULL DEFAULT 0,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sentinel_kv_expires ON sentinel_kv(expires_at);
`

// NewSQLite creates a new SQLite store with default settings.
func NewSQLite(dbPath string) (*SQLite, error) {
	return NewSQLiteWithConfig(SQLiteConfig{DBPath: dbPath})
}

// NewSQLiteWithConfig creates a new SQLite store with custom configuration.
func NewSQLiteWithConfig(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{db: db, dbPath: cfg.DBPath}, nil
}

// IncrementWithin atomically increments the counter at key using an UPSERT.
// An expired row is treated as absent: the counter restarts at 1 and a fresh
// expiry is set.
func (s *SQLite) IncrementWithin(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %v", ttl)
	}

	now := time.Now().UnixMilli()
	expiresAt := now + ttl.Milliseconds()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO sentinel_kv (key, count, expires_at) VALUES (?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			count = CASE WHEN sentinel_kv.expires_at <= ? THEN 1 ELSE sentinel_kv.count + 1 END,
			value = CASE WHEN sentinel_kv.expires_at <= ? THEN NULL ELSE sentinel_kv.value END,
			expires_at = CASE WHEN sentinel_kv.expires_at <= ? THEN ? ELSE sentinel_kv.expires_at END
		RETURNING count`,
		key, expiresAt, now, now, now, expiresAt,
	)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment key %q: %w", key, err)
	}
	return count, nil
}

// Get retrieves the value stored at key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	now := time.Now().UnixMilli()

	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM sentinel_kv WHERE key = ? AND expires_at > ?`,
		key, now,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	if value == nil {
		// Row exists for a counter but holds no value.
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value at key with the given ttl, replacing any existing row.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", ttl)
	}

	expiresAt := time.Now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sentinel_kv (key, value, count, expires_at) VALUES (?, ?, 0, ?)`,
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry at key.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sentinel_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// TTL returns the remaining lifetime of key.
func (s *SQLite) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	now := time.Now().UnixMilli()

	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM sentinel_kv WHERE key = ? AND expires_at > ?`,
		key, now,
	).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read ttl for key %q: %w", key, err)
	}
	return time.Duration(expiresAt-now) * time.Millisecond, true, nil
}

// Prune removes expired rows.
func (s *SQLite) Prune(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sentinel_kv WHERE expires_at <= ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune expired entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
