package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// GetCacheEntry returns the payload stored under key, or (nil, false) when
// the key is absent or expired. Expired rows are left in place; PutCacheEntry
// overwrites them and PurgeExpiredCacheEntries removes them in bulk.
func (db *DB) GetCacheEntry(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT value, expires_at FROM cache_entries WHERE key = ?`

	var value []byte
	var expiresAt int64
	err := db.conn.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query cache entry", "key", key, "error", err)
		return nil, false, fmt.Errorf("query cache entry: %w", err)
	}

	if time.Now().Unix() >= expiresAt {
		return nil, false, nil
	}

	return value, true, nil
}

// PutCacheEntry writes a payload under key, replacing any previous row.
func (db *DB) PutCacheEntry(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`

	expiresAt := time.Now().Add(ttl).Unix()
	if _, err := db.conn.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		slog.ErrorContext(ctx, "failed to save cache entry", "key", key, "error", err)
		return fmt.Errorf("save cache entry: %w", err)
	}

	return nil
}

// DeleteCacheEntry removes one cache row. Used by tests and manual refresh.
func (db *DB) DeleteCacheEntry(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// PurgeExpiredCacheEntries removes all rows past their expiry and returns
// how many were deleted.
func (db *DB) PurgeExpiredCacheEntries(ctx context.Context) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge cache entries: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// CountCacheEntries returns the number of unexpired cache rows.
func (db *DB) CountCacheEntries(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries WHERE expires_at > ?`, time.Now().Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}
