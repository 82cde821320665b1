package bot

import (
	"strings"
	"time"

	"github.com/uitmtimetable/icress-linebot-go/internal/timetable"
)

// RenderTimetable formats a merged schedule as one plain-text message.
// Clashing entries carry a warning marker; entries whose times could not
// be parsed render with blank times rather than being hidden.
func RenderTimetable(schedule []timetable.DaySchedule) string {
	var b strings.Builder
	b.WriteString("📚 TIMETABLE")

	for _, day := range schedule {
		b.WriteString("\n🗓 ")
		b.WriteString(day.Day)
		b.WriteString("\n")

		for _, e := range day.Entries {
			b.WriteString(e.CourseCode)
			b.WriteString(" 🕛 ")
			b.WriteString(formatClock(e.StartTime))
			b.WriteString(" - ")
			b.WriteString(formatClock(e.EndTime))
			if e.IsClash {
				b.WriteString(" ❗️ CLASHED ❗️")
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatClock renders hour and minute with a lowercase meridiem suffix,
// keeping the hour digits as the portal published them.
func formatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04 pm")
}
