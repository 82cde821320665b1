package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Session is the persisted state of one in-progress dialog. A chat owns at
// most one session; it is created on first contact, mutated at each step
// boundary, and deleted when the dialog completes.
type Session struct {
	ChatID    string
	Step      int
	CampusID  string
	FacultyID string
	Courses   string // raw course-lines text as entered by the user
	UpdatedAt int64
}

// GetSession returns the session for a chat, or nil when none exists.
func (db *DB) GetSession(ctx context.Context, chatID string) (*Session, error) {
	query := `SELECT chat_id, step, campus_id, faculty_id, courses, updated_at FROM sessions WHERE chat_id = ?`

	var s Session
	err := db.conn.QueryRowContext(ctx, query, chatID).Scan(
		&s.ChatID,
		&s.Step,
		&s.CampusID,
		&s.FacultyID,
		&s.Courses,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query session", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("query session: %w", err)
	}

	return &s, nil
}

// SaveSession inserts or updates a chat's session.
func (db *DB) SaveSession(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO sessions (chat_id, step, campus_id, faculty_id, courses, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			step = excluded.step,
			campus_id = excluded.campus_id,
			faculty_id = excluded.faculty_id,
			courses = excluded.courses,
			updated_at = excluded.updated_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		s.ChatID, s.Step, s.CampusID, s.FacultyID, s.Courses, time.Now().Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to save session", "chat_id", s.ChatID, "error", err)
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// ClearSession deletes a chat's session. Clearing an absent session is a no-op.
func (db *DB) ClearSession(ctx context.Context, chatID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = ?`, chatID); err != nil {
		slog.ErrorContext(ctx, "failed to clear session", "chat_id", chatID, "error", err)
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// PurgeStaleSessions deletes sessions untouched for longer than maxAge.
// A user who walked away mid-dialog starts over instead of resuming a
// conversation from days ago.
func (db *DB) PurgeStaleSessions(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	result, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge stale sessions: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// CountSessions returns the number of in-progress dialogs.
func (db *DB) CountSessions(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}
