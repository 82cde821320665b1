package timetable

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/uitmtimetable/icress-linebot-go/internal/cache"
	domerrors "github.com/uitmtimetable/icress-linebot-go/internal/errors"
	"github.com/uitmtimetable/icress-linebot-go/internal/icress"
	"github.com/uitmtimetable/icress-linebot-go/internal/logger"
)

// Cache keys. Directory keys are global; course and timetable keys embed
// the lookup parameters. Timetable keys carry the course code only, so two
// campuses sharing a code share a cache slot; directories refresh monthly
// and the portal serves one timetable per code in practice.
const (
	keyCampuses  = "icress_campuses"
	keyFaculties = "icress_faculties"
)

func keyCourses(campusID, facultyID string) string {
	if facultyID == "" {
		return fmt.Sprintf("icress_courses:%s", campusID)
	}
	return fmt.Sprintf("icress_courses:%s_%s", campusID, facultyID)
}

func keyTimetable(code string) string {
	return fmt.Sprintf("icress_timetable:%s", code)
}

// selangorCampusID is the one campus whose course list is too large to
// search without narrowing by faculty.
const selangorCampusID = "B"

// Service answers timetable queries, reading through the cache and
// falling back to the portal on misses.
type Service struct {
	client       *icress.Client
	cache        *cache.Store
	directoryTTL time.Duration
	timetableTTL time.Duration
	loc          *time.Location
	log          *logger.Logger
}

// NewService creates a timetable service. directoryTTL bounds campus,
// faculty and course list caching; timetableTTL bounds per-course
// timetable caching. loc is the timezone class times are materialized in.
func NewService(client *icress.Client, store *cache.Store, directoryTTL, timetableTTL time.Duration, loc *time.Location, log *logger.Logger) *Service {
	return &Service{
		client:       client,
		cache:        store,
		directoryTTL: directoryTTL,
		timetableTTL: timetableTTL,
		loc:          loc,
		log:          log.WithModule("timetable"),
	}
}

// ListCampuses returns all campuses. Empty on portal failure.
func (s *Service) ListCampuses(ctx context.Context) []icress.Option {
	return cache.GetOrCompute(ctx, s.cache, keyCampuses, s.directoryTTL, func(ctx context.Context) ([]icress.Option, error) {
		status, body, err := s.client.FetchCampuses(ctx)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, nil
		}
		return icress.ExtractDirectory(body), nil
	})
}

// ListFaculties returns all faculties. Empty on portal failure.
func (s *Service) ListFaculties(ctx context.Context) []icress.Option {
	return cache.GetOrCompute(ctx, s.cache, keyFaculties, s.directoryTTL, func(ctx context.Context) ([]icress.Option, error) {
		status, body, err := s.client.FetchFaculties(ctx)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, nil
		}
		return icress.ExtractDirectory(body), nil
	})
}

// IsFacultyRequired reports whether course search on this campus needs a
// faculty filter.
func (s *Service) IsFacultyRequired(campusID string) bool {
	return campusID == selangorCampusID
}

// ListCourses returns the course code to timetable URL mapping for a
// campus, optionally narrowed by faculty. Empty on portal failure.
func (s *Service) ListCourses(ctx context.Context, campusID, facultyID string) map[string]string {
	return cache.GetOrCompute(ctx, s.cache, keyCourses(campusID, facultyID), s.directoryTTL, func(ctx context.Context) (map[string]string, error) {
		status, body, err := s.client.SearchCourses(ctx, campusID, facultyID)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, nil
		}
		return icress.ExtractCourseRefs(body), nil
	})
}

// GetCourseTimetable returns the schedule entries for one course group.
// The full course timetable is cached; the group filter runs per call.
// Returns ErrNotFound when the course is missing from the campus's course
// list or its search result URL carries no id pair. Portal failures yield
// an empty slice, not an error.
func (s *Service) GetCourseTimetable(ctx context.Context, campusID, facultyID, code, group string) ([]Entry, error) {
	refs := s.ListCourses(ctx, campusID, facultyID)
	courseURL, ok := refs[code]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", code, domerrors.ErrNotFound)
	}

	id1, id2, ok := parseTimetableRef(courseURL)
	if !ok {
		s.log.WithField("course", code).Warnf("course ref %q has no timetable ids", courseURL)
		return nil, fmt.Errorf("course %s ref %q: %w", code, courseURL, domerrors.ErrNotFound)
	}

	entries := cache.GetOrCompute(ctx, s.cache, keyTimetable(code), s.timetableTTL, func(ctx context.Context) ([]Entry, error) {
		status, body, err := s.client.FetchTimetable(ctx, id1, id2)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			return nil, nil
		}
		return s.entriesFromRows(code, icress.ExtractTimetableRows(body)), nil
	})

	if group == "" {
		return entries, nil
	}
	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Group == group {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// MergeTimetables loads every selected course group and merges the entries
// into one week view. The whole flattened week is sorted by start time
// (unparsed times first) before grouping, so the day with the earliest
// class comes first and entries stay ordered within each day. Any set of
// entries sharing a day and start time is marked as clashing, every
// member included.
func (s *Service) MergeTimetables(ctx context.Context, campusID, facultyID string, selections []Selection) []DaySchedule {
	var entries []Entry
	for _, sel := range selections {
		courseEntries, err := s.GetCourseTimetable(ctx, campusID, facultyID, sel.Code, sel.Group)
		if err != nil {
			if domerrors.IsNotFound(err) {
				s.log.WithField("course", sel.Code).Warn("course has no resolvable timetable")
			}
			continue
		}
		entries = append(entries, courseEntries...)
	}
	if len(entries) == 0 {
		return nil
	}

	slotCount := make(map[string]int, len(entries))
	for _, e := range entries {
		slotCount[slotKey(e)]++
	}
	for i := range entries {
		if slotCount[slotKey(entries[i])] > 1 {
			entries[i].IsClash = true
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return startMinutes(entries[i]) < startMinutes(entries[j])
	})

	dayOrder := make([]string, 0)
	byDay := make(map[string][]Entry)
	for _, e := range entries {
		if _, seen := byDay[e.Day]; !seen {
			dayOrder = append(dayOrder, e.Day)
		}
		byDay[e.Day] = append(byDay[e.Day], e)
	}

	schedule := make([]DaySchedule, 0, len(dayOrder))
	for _, day := range dayOrder {
		schedule = append(schedule, DaySchedule{Day: day, Entries: byDay[day]})
	}
	return schedule
}

// CampusIDByName resolves a campus name, case-insensitively, to its id.
// Duplicate names resolve to the last directory entry carrying the name.
func (s *Service) CampusIDByName(ctx context.Context, name string) (string, bool) {
	return lookupByName(s.ListCampuses(ctx), name)
}

// FacultyIDByName resolves a faculty name, case-insensitively, to its id.
func (s *Service) FacultyIDByName(ctx context.Context, name string) (string, bool) {
	return lookupByName(s.ListFaculties(ctx), name)
}

func lookupByName(options []icress.Option, name string) (string, bool) {
	byName := make(map[string]string, len(options))
	for _, o := range options {
		byName[strings.ToUpper(o.Name)] = o.ID
	}
	id, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
	return id, ok
}

// entriesFromRows turns raw table rows into entries. Rows whose time cell
// does not parse keep empty day and times.
func (s *Service) entriesFromRows(code string, rows []icress.RawRow) []Entry {
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		day, start, end, _ := icress.ParseDayAndTimes(row.Time, s.loc)
		entries = append(entries, Entry{
			Day:        day,
			StartTime:  start,
			EndTime:    end,
			CourseCode: code,
			Group:      row.Group,
			Location:   row.Location,
		})
	}
	return entries
}

// parseTimetableRef extracts the id pair from a course's timetable URL.
func parseTimetableRef(courseURL string) (id1, id2 string, ok bool) {
	u, err := url.Parse(courseURL)
	if err != nil {
		return "", "", false
	}
	q := u.Query()
	id1, id2 = q.Get("id1"), q.Get("id2")
	return id1, id2, id1 != "" && id2 != ""
}

// slotKey identifies a day and start-time slot. Entries with unparsed
// times share the empty slot and can therefore clash with each other.
func slotKey(e Entry) string {
	start := ""
	if !e.StartTime.IsZero() {
		start = e.StartTime.Format("15:04")
	}
	return e.Day + "|" + start
}

// startMinutes orders entries within a day. Unparsed starts sort first.
func startMinutes(e Entry) int {
	if e.StartTime.IsZero() {
		return -1
	}
	return e.StartTime.Hour()*60 + e.StartTime.Minute()
}
