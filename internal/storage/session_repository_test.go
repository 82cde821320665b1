package storage

import (
	"context"
	"testing"
	"time"
)

func TestSession_AbsentReturnsNil(t *testing.T) {
	db := newStorageTestDB(t)

	s, err := db.GetSession(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil session, got %+v", s)
	}
}

func TestSession_SaveAndGet(t *testing.T) {
	db := newStorageTestDB(t)
	ctx := context.Background()

	in := &Session{
		ChatID:   "chat-1",
		Step:     2,
		CampusID: "A",
	}
	if err := db.SaveSession(ctx, in); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	out, err := db.GetSession(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if out == nil {
		t.Fatal("expected session")
	}
	if out.Step != 2 || out.CampusID != "A" || out.FacultyID != "" {
		t.Errorf("unexpected session: %+v", out)
	}
	if out.UpdatedAt == 0 {
		t.Error("expected UpdatedAt to be stamped on save")
	}
}

func TestSession_UpsertAdvancesStep(t *testing.T) {
	db := newStorageTestDB(t)
	ctx := context.Background()

	_ = db.SaveSession(ctx, &Session{ChatID: "chat-1", Step: 1})
	if err := db.SaveSession(ctx, &Session{
		ChatID:   "chat-1",
		Step:     3,
		CampusID: "B",
		Courses:  "ENT530 - D1IM2443A",
	}); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	out, err := db.GetSession(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if out.Step != 3 || out.CampusID != "B" || out.Courses != "ENT530 - D1IM2443A" {
		t.Errorf("unexpected session after upsert: %+v", out)
	}

	count, err := db.CountSessions(ctx)
	if err != nil {
		t.Fatalf("CountSessions failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestSession_PurgeStale(t *testing.T) {
	db := newStorageTestDB(t)
	ctx := context.Background()

	_ = db.SaveSession(ctx, &Session{ChatID: "fresh", Step: 1})
	// Backdate one session past the cutoff.
	_ = db.SaveSession(ctx, &Session{ChatID: "stale", Step: 1})
	if _, err := db.Conn().ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE chat_id = ?`,
		time.Now().Add(-48*time.Hour).Unix(), "stale"); err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	deleted, err := db.PurgeStaleSessions(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeStaleSessions failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if s, _ := db.GetSession(ctx, "stale"); s != nil {
		t.Error("stale session survived purge")
	}
	if s, _ := db.GetSession(ctx, "fresh"); s == nil {
		t.Error("fresh session was purged")
	}
}

func TestSession_Clear(t *testing.T) {
	db := newStorageTestDB(t)
	ctx := context.Background()

	_ = db.SaveSession(ctx, &Session{ChatID: "chat-1", Step: 1})
	if err := db.ClearSession(ctx, "chat-1"); err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}

	s, _ := db.GetSession(ctx, "chat-1")
	if s != nil {
		t.Error("expected session to be gone after clear")
	}

	// Clearing again is a no-op.
	if err := db.ClearSession(ctx, "chat-1"); err != nil {
		t.Errorf("ClearSession on absent row returned %v", err)
	}
}
