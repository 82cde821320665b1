// Package timetable builds student timetables out of portal data: it
// resolves campus and faculty names, lists courses, loads per-course
// schedules through the cache, and merges selected course groups into one
// clash-annotated week view.
package timetable

import "time"

// Entry is one scheduled class meeting. Day and the two times stay zero
// when the portal's time cell could not be parsed; such entries are kept
// so the student still sees the group and location.
type Entry struct {
	Day        string    `json:"day"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	CourseCode string    `json:"course_code"`
	Group      string    `json:"group"`
	Location   string    `json:"location"`
	IsClash    bool      `json:"is_clash"`
}

// Selection names one course group the student wants merged, e.g.
// code ENT530 group D1IM2443A.
type Selection struct {
	Code  string
	Group string
}

// DaySchedule groups a merged timetable's entries under one day label.
// Days appear in the order they were first encountered across the
// selected courses; entries within a day are ordered by start time.
type DaySchedule struct {
	Day     string  `json:"day"`
	Entries []Entry `json:"entries"`
}
