package bot

import (
	"strings"

	domerrors "github.com/uitmtimetable/icress-linebot-go/internal/errors"
	"github.com/uitmtimetable/icress-linebot-go/internal/timetable"
)

// ParseCourseSelections reads "CODE - GROUP" lines, one course per line.
// Lines without a " - " separator after the first character are skipped.
// A repeated code keeps its first position but takes the later group.
// Returns ErrInvalidInput when no line yields a selection.
func ParseCourseSelections(text string) ([]timetable.Selection, error) {
	var selections []timetable.Selection
	index := make(map[string]int)

	for _, line := range strings.Split(text, "\n") {
		if strings.Index(line, " - ") <= 0 {
			continue
		}

		parts := strings.Split(line, " - ")
		code := strings.TrimSpace(parts[0])
		group := strings.TrimSpace(parts[1])
		if code == "" {
			continue
		}

		if at, seen := index[code]; seen {
			selections[at].Group = group
			continue
		}
		index[code] = len(selections)
		selections = append(selections, timetable.Selection{Code: code, Group: group})
	}

	if len(selections) == 0 {
		return nil, domerrors.ErrInvalidInput
	}
	return selections, nil
}
