// Package bot drives the timetable dialog. The dialog is a four step
// conversation: pick a campus, pick a faculty when the campus needs one,
// enter course code and group lines, receive the merged timetable. Steps
// fall through, so one incoming message can advance several steps at once.
package bot

import (
	"context"
	"strings"

	domerrors "github.com/uitmtimetable/icress-linebot-go/internal/errors"
	"github.com/uitmtimetable/icress-linebot-go/internal/icress"
	"github.com/uitmtimetable/icress-linebot-go/internal/logger"
	"github.com/uitmtimetable/icress-linebot-go/internal/storage"
	"github.com/uitmtimetable/icress-linebot-go/internal/timetable"
)

// Dialog steps. A session's step records the last prompt sent, so an
// incoming message is interpreted as the answer to that prompt.
const (
	stepCampus = iota
	stepFaculty
	stepCourses
	stepGenerate
)

// ResultKind tells the transport layer what to send.
type ResultKind string

const (
	ResultCampusList     ResultKind = "campus_list"
	ResultFacultyList    ResultKind = "faculty_list"
	ResultInvalidCampus  ResultKind = "invalid_campus"
	ResultInvalidFaculty ResultKind = "invalid_faculty"
	ResultEnterCourses   ResultKind = "enter_courses"
	ResultInvalidCourses ResultKind = "invalid_courses"
	ResultTimetable      ResultKind = "timetable"
	ResultNotFound       ResultKind = "not_found"
)

// Result is the engine's answer to one incoming message. Options carries
// the pick list for list kinds; Timetable carries the merged schedule for
// ResultTimetable.
type Result struct {
	Kind      ResultKind
	Options   []string
	Timetable []timetable.DaySchedule
}

// SessionStore persists per-chat dialog state between messages.
type SessionStore interface {
	GetSession(ctx context.Context, chatID string) (*storage.Session, error)
	SaveSession(ctx context.Context, s *storage.Session) error
	ClearSession(ctx context.Context, chatID string) error
}

// Aggregator answers the timetable queries the dialog needs.
type Aggregator interface {
	ListCampuses(ctx context.Context) []icress.Option
	ListFaculties(ctx context.Context) []icress.Option
	IsFacultyRequired(campusID string) bool
	CampusIDByName(ctx context.Context, name string) (string, bool)
	FacultyIDByName(ctx context.Context, name string) (string, bool)
	MergeTimetables(ctx context.Context, campusID, facultyID string, selections []timetable.Selection) []timetable.DaySchedule
}

// Recorder receives dialog lifecycle events. Implemented by the metrics
// package; nil disables recording.
type Recorder interface {
	RecordDialogStarted()
	RecordDialogCompleted(outcome string)
}

// Engine runs the dialog state machine. Stateless itself; all dialog
// state lives in the session store.
type Engine struct {
	sessions   SessionStore
	timetables Aggregator
	log        *logger.Logger
	recorder   Recorder
}

// NewEngine creates a dialog engine.
func NewEngine(sessions SessionStore, timetables Aggregator, log *logger.Logger) *Engine {
	return &Engine{
		sessions:   sessions,
		timetables: timetables,
		log:        log.WithModule("bot"),
	}
}

// SetRecorder attaches a metrics recorder. Safe to leave unset.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// Start begins a fresh dialog for a chat, discarding any session left
// over from an abandoned one.
func (e *Engine) Start(ctx context.Context, chatID string) (Result, error) {
	if err := e.sessions.ClearSession(ctx, chatID); err != nil {
		return Result{}, err
	}
	if e.recorder != nil {
		e.recorder.RecordDialogStarted()
	}
	return e.Handle(ctx, chatID, "")
}

// HasSession reports whether a chat has a dialog in progress.
func (e *Engine) HasSession(ctx context.Context, chatID string) (bool, error) {
	session, err := e.sessions.GetSession(ctx, chatID)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

// Handle advances a chat's dialog with one incoming message. An empty
// message re-issues the current step's prompt. Valid input advances and
// falls through to the next step; invalid input answers with the step's
// error and leaves the session where it was.
func (e *Engine) Handle(ctx context.Context, chatID, text string) (Result, error) {
	session, err := e.sessions.GetSession(ctx, chatID)
	if err != nil {
		return Result{}, err
	}
	if session == nil {
		session = &storage.Session{ChatID: chatID, Step: stepCampus}
	}

	text = strings.TrimSpace(text)
	step := session.Step

	for {
		switch step {
		case stepCampus:
			if text == "" {
				session.Step = stepCampus
				if err := e.sessions.SaveSession(ctx, session); err != nil {
					return Result{}, err
				}
				return Result{Kind: ResultCampusList, Options: optionNames(e.timetables.ListCampuses(ctx))}, nil
			}

			campusID, ok := e.timetables.CampusIDByName(ctx, text)
			if !ok {
				return Result{Kind: ResultInvalidCampus}, nil
			}
			session.CampusID = campusID
			if err := e.sessions.SaveSession(ctx, session); err != nil {
				return Result{}, err
			}
			text = ""
			step = stepFaculty

		case stepFaculty:
			if e.timetables.IsFacultyRequired(session.CampusID) {
				if text == "" {
					session.Step = stepFaculty
					if err := e.sessions.SaveSession(ctx, session); err != nil {
						return Result{}, err
					}
					return Result{Kind: ResultFacultyList, Options: optionNames(e.timetables.ListFaculties(ctx))}, nil
				}

				facultyID, ok := e.timetables.FacultyIDByName(ctx, text)
				if !ok {
					return Result{Kind: ResultInvalidFaculty}, nil
				}
				session.FacultyID = facultyID
				if err := e.sessions.SaveSession(ctx, session); err != nil {
					return Result{}, err
				}
			}
			text = ""
			step = stepCourses

		case stepCourses:
			if text == "" {
				session.Step = stepCourses
				if err := e.sessions.SaveSession(ctx, session); err != nil {
					return Result{}, err
				}
				return Result{Kind: ResultEnterCourses}, nil
			}

			if _, err := ParseCourseSelections(text); err != nil {
				if domerrors.IsInvalidInput(err) {
					return Result{Kind: ResultInvalidCourses}, nil
				}
				return Result{}, err
			}
			session.Courses = text
			if err := e.sessions.SaveSession(ctx, session); err != nil {
				return Result{}, err
			}
			step = stepGenerate

		case stepGenerate:
			// Courses were validated before the session saved them.
			selections, _ := ParseCourseSelections(session.Courses)

			// The dialog ends whether or not the portal finds anything.
			if err := e.sessions.ClearSession(ctx, chatID); err != nil {
				return Result{}, err
			}

			schedule := e.timetables.MergeTimetables(ctx, session.CampusID, session.FacultyID, selections)
			if len(schedule) == 0 {
				if e.recorder != nil {
					e.recorder.RecordDialogCompleted("not_found")
				}
				return Result{Kind: ResultNotFound}, nil
			}
			if e.recorder != nil {
				e.recorder.RecordDialogCompleted("timetable")
			}
			e.log.WithField("chat_id", chatID).Infof("generated timetable with %d days", len(schedule))
			return Result{Kind: ResultTimetable, Timetable: schedule}, nil

		default:
			// Unknown step from an older schema. Restart cleanly.
			e.log.Warnf("resetting session with unknown step %d", step)
			session = &storage.Session{ChatID: chatID, Step: stepCampus}
			text = ""
			step = stepCampus
		}
	}
}

func optionNames(options []icress.Option) []string {
	names := make([]string, 0, len(options))
	for _, o := range options {
		names = append(names, o.Name)
	}
	return names
}
