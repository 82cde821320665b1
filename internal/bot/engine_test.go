package bot

import (
	"context"
	"testing"
	"time"

	"github.com/uitmtimetable/icress-linebot-go/internal/icress"
	"github.com/uitmtimetable/icress-linebot-go/internal/logger"
	"github.com/uitmtimetable/icress-linebot-go/internal/storage"
	"github.com/uitmtimetable/icress-linebot-go/internal/timetable"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type mergeCall struct {
	campusID   string
	facultyID  string
	selections []timetable.Selection
}

// fakeAggregator serves fixed directories and records merge calls.
type fakeAggregator struct {
	schedule   []timetable.DaySchedule
	mergeCalls []mergeCall
}

func (f *fakeAggregator) ListCampuses(context.Context) []icress.Option {
	return []icress.Option{
		{ID: "A", Name: "UITM SHAH ALAM"},
		{ID: "B", Name: "UITM KAMPUS SELANGOR"},
	}
}

func (f *fakeAggregator) ListFaculties(context.Context) []icress.Option {
	return []icress.Option{
		{ID: "IM", Name: "INFORMATION MANAGEMENT"},
		{ID: "AP", Name: "ARCHITECTURE, PLANNING AND SURVEYING"},
	}
}

func (f *fakeAggregator) IsFacultyRequired(campusID string) bool {
	return campusID == "B"
}

func (f *fakeAggregator) CampusIDByName(ctx context.Context, name string) (string, bool) {
	for _, o := range f.ListCampuses(ctx) {
		if o.Name == name {
			return o.ID, true
		}
	}
	return "", false
}

func (f *fakeAggregator) FacultyIDByName(ctx context.Context, name string) (string, bool) {
	for _, o := range f.ListFaculties(ctx) {
		if o.Name == name {
			return o.ID, true
		}
	}
	return "", false
}

func (f *fakeAggregator) MergeTimetables(_ context.Context, campusID, facultyID string, selections []timetable.Selection) []timetable.DaySchedule {
	f.mergeCalls = append(f.mergeCalls, mergeCall{campusID, facultyID, selections})
	return f.schedule
}

func newTestEngine(t *testing.T) (*Engine, *fakeAggregator, *storage.DB) {
	t.Helper()
	db, err := storage.NewTestDB()
	if err != nil {
		t.Fatalf("NewTestDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	agg := &fakeAggregator{
		schedule: []timetable.DaySchedule{{Day: "MON", Entries: []timetable.Entry{{CourseCode: "ENT530"}}}},
	}
	return NewEngine(db, agg, logger.NewWithWriter("error", discardWriter{})), agg, db
}

func TestEngine_StartPromptsCampusList(t *testing.T) {
	engine, _, db := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Start(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if result.Kind != ResultCampusList {
		t.Errorf("kind = %s, want campus_list", result.Kind)
	}
	if len(result.Options) != 2 || result.Options[0] != "UITM SHAH ALAM" {
		t.Errorf("unexpected options: %v", result.Options)
	}

	session, _ := db.GetSession(ctx, "chat-1")
	if session == nil || session.Step != 0 {
		t.Errorf("expected session at step 0, got %+v", session)
	}
}

func TestEngine_InvalidCampusKeepsStep(t *testing.T) {
	engine, _, db := newTestEngine(t)
	ctx := context.Background()

	_, _ = engine.Start(ctx, "chat-1")
	result, err := engine.Handle(ctx, "chat-1", "UITM NOWHERE")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.Kind != ResultInvalidCampus {
		t.Errorf("kind = %s, want invalid_campus", result.Kind)
	}

	session, _ := db.GetSession(ctx, "chat-1")
	if session.Step != 0 || session.CampusID != "" {
		t.Errorf("session advanced on invalid input: %+v", session)
	}
}

func TestEngine_CampusWithoutFacultySkipsToCoursesPrompt(t *testing.T) {
	engine, _, db := newTestEngine(t)
	ctx := context.Background()

	_, _ = engine.Start(ctx, "chat-1")
	result, err := engine.Handle(ctx, "chat-1", "UITM SHAH ALAM")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.Kind != ResultEnterCourses {
		t.Errorf("kind = %s, want enter_courses (faculty step skipped)", result.Kind)
	}

	session, _ := db.GetSession(ctx, "chat-1")
	if session.Step != 2 || session.CampusID != "A" || session.FacultyID != "" {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestEngine_SelangorCampusAsksForFaculty(t *testing.T) {
	engine, _, db := newTestEngine(t)
	ctx := context.Background()

	_, _ = engine.Start(ctx, "chat-1")
	result, _ := engine.Handle(ctx, "chat-1", "UITM KAMPUS SELANGOR")
	if result.Kind != ResultFacultyList {
		t.Fatalf("kind = %s, want faculty_list", result.Kind)
	}
	if len(result.Options) != 2 {
		t.Errorf("unexpected faculty options: %v", result.Options)
	}

	if result, _ = engine.Handle(ctx, "chat-1", "NO SUCH FACULTY"); result.Kind != ResultInvalidFaculty {
		t.Errorf("kind = %s, want invalid_faculty", result.Kind)
	}

	if result, _ = engine.Handle(ctx, "chat-1", "INFORMATION MANAGEMENT"); result.Kind != ResultEnterCourses {
		t.Errorf("kind = %s, want enter_courses", result.Kind)
	}

	session, _ := db.GetSession(ctx, "chat-1")
	if session.CampusID != "B" || session.FacultyID != "IM" || session.Step != 2 {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestEngine_BlankCoursesInputRepeatsPrompt(t *testing.T) {
	engine, _, db := newTestEngine(t)
	ctx := context.Background()

	_, _ = engine.Start(ctx, "chat-1")
	_, _ = engine.Handle(ctx, "chat-1", "UITM SHAH ALAM")

	result, err := engine.Handle(ctx, "chat-1", "   \n\t ")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.Kind != ResultEnterCourses {
		t.Errorf("kind = %s, want enter_courses", result.Kind)
	}

	session, _ := db.GetSession(ctx, "chat-1")
	if session.Step != 2 {
		t.Errorf("step = %d, want 2", session.Step)
	}
}

func TestEngine_InvalidCoursesFormat(t *testing.T) {
	engine, agg, _ := newTestEngine(t)
	ctx := context.Background()

	_, _ = engine.Start(ctx, "chat-1")
	_, _ = engine.Handle(ctx, "chat-1", "UITM SHAH ALAM")

	result, _ := engine.Handle(ctx, "chat-1", "ENT530 D1IM2443A")
	if result.Kind != ResultInvalidCourses {
		t.Errorf("kind = %s, want invalid_courses", result.Kind)
	}
	if len(agg.mergeCalls) != 0 {
		t.Error("merge must not run on invalid course input")
	}
}

func TestEngine_FullDialogGeneratesTimetable(t *testing.T) {
	engine, agg, db := newTestEngine(t)
	ctx := context.Background()

	_, _ = engine.Start(ctx, "chat-1")
	_, _ = engine.Handle(ctx, "chat-1", "UITM SHAH ALAM")

	result, err := engine.Handle(ctx, "chat-1", "ENT530 - D1IM2443A\nIMS605 - D1IM2455A")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.Kind != ResultTimetable {
		t.Fatalf("kind = %s, want timetable", result.Kind)
	}
	if len(result.Timetable) != 1 || result.Timetable[0].Day != "MON" {
		t.Errorf("unexpected timetable: %+v", result.Timetable)
	}

	if len(agg.mergeCalls) != 1 {
		t.Fatalf("merge called %d times, want 1", len(agg.mergeCalls))
	}
	call := agg.mergeCalls[0]
	if call.campusID != "A" || call.facultyID != "" {
		t.Errorf("merge called with campus %q faculty %q", call.campusID, call.facultyID)
	}
	want := []timetable.Selection{
		{Code: "ENT530", Group: "D1IM2443A"},
		{Code: "IMS605", Group: "D1IM2455A"},
	}
	if len(call.selections) != len(want) {
		t.Fatalf("selections = %+v, want %+v", call.selections, want)
	}
	for i := range want {
		if call.selections[i] != want[i] {
			t.Errorf("selection %d = %+v, want %+v", i, call.selections[i], want[i])
		}
	}

	// The dialog is over; the next /generate starts fresh.
	if session, _ := db.GetSession(ctx, "chat-1"); session != nil {
		t.Errorf("session not cleared after generation: %+v", session)
	}
}

func TestEngine_EmptyMergeResultIsNotFound(t *testing.T) {
	engine, agg, db := newTestEngine(t)
	agg.schedule = nil
	ctx := context.Background()

	_, _ = engine.Start(ctx, "chat-1")
	_, _ = engine.Handle(ctx, "chat-1", "UITM SHAH ALAM")

	result, _ := engine.Handle(ctx, "chat-1", "ZZZ999 - G1")
	if result.Kind != ResultNotFound {
		t.Errorf("kind = %s, want not_found", result.Kind)
	}
	if session, _ := db.GetSession(ctx, "chat-1"); session != nil {
		t.Error("session must be cleared even when nothing was found")
	}
}

func TestEngine_StartDiscardsStaleSession(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, _ = engine.Start(ctx, "chat-1")
	_, _ = engine.Handle(ctx, "chat-1", "UITM KAMPUS SELANGOR")

	// Restarting mid-dialog returns to the campus prompt.
	result, err := engine.Start(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if result.Kind != ResultCampusList {
		t.Errorf("kind = %s, want campus_list", result.Kind)
	}
}

func TestEngine_HasSession(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	has, err := engine.HasSession(ctx, "chat-1")
	if err != nil || has {
		t.Errorf("HasSession = (%v, %v), want (false, nil)", has, err)
	}

	_, _ = engine.Start(ctx, "chat-1")
	if has, _ = engine.HasSession(ctx, "chat-1"); !has {
		t.Error("expected session after Start")
	}
}

func TestEngine_UnknownStepRestarts(t *testing.T) {
	engine, _, db := newTestEngine(t)
	ctx := context.Background()

	_ = db.SaveSession(ctx, &storage.Session{ChatID: "chat-1", Step: 9, UpdatedAt: time.Now().Unix()})

	result, err := engine.Handle(ctx, "chat-1", "whatever")
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.Kind != ResultCampusList {
		t.Errorf("kind = %s, want campus_list after reset", result.Kind)
	}
}
