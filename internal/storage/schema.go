package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Note: WAL mode is configured in db.go.
func InitSchema(db *sql.DB) error {
	if err := createCacheEntriesTable(db); err != nil {
		return err
	}
	return createSessionsTable(db)
}

// cache_entries holds one row per cache key. Values are opaque JSON payloads
// written wholesale on refresh; expires_at is a Unix timestamp.
func createCacheEntriesTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create cache_entries table: %w", err)
	}

	return nil
}

// sessions holds one row per in-progress conversation, keyed by the chat id.
// The row is deleted when the dialog completes or is abandoned.
func createSessionsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		chat_id TEXT PRIMARY KEY,
		step INTEGER NOT NULL DEFAULT 0,
		campus_id TEXT NOT NULL DEFAULT '',
		faculty_id TEXT NOT NULL DEFAULT '',
		courses TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	return nil
}
