package icress

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Option is one entry of a portal directory (campus or faculty).
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawRow holds the cell text of one timetable table row, addressed by the
// fixed positions the portal uses: time is cell 2, group cell 3, location
// cell 6 (1-indexed). The page has no headers, so positions are the only
// addressing scheme available.
type RawRow struct {
	Time     string
	Group    string
	Location string
}

// dividerID marks the separator entry the portal injects into directories.
const dividerID = "X"

var (
	// courseCodeRegex matches a course/subject code like ENT530.
	courseCodeRegex = regexp.MustCompile(`^([A-Z]+\d+)`)

	// clickURLRegex captures the single-quoted URL inside an inline click
	// handler, e.g. onClick="myPopup('index_tt.cfm?id1=..&id2=..')".
	clickURLRegex = regexp.MustCompile(`\('([^']*)'\)`)

	// dayTimeRegex matches the literal time cell shape, e.g.
	// "MON( 10:00 AM-12:00 PM )". A single space follows the parenthesis
	// and the range is dash-separated.
	dayTimeRegex = regexp.MustCompile(`([A-Z]+)\( (\d+:\d+ [AMP]+)-(\d+:\d+ [AMP]+)`)
)

type directoryResponse struct {
	Results []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"results"`
}

// ExtractDirectory parses a directory JSON payload into options, dropping
// the divider sentinel and stripping the "<id> - " prefix from names.
func ExtractDirectory(body string) []Option {
	var resp directoryResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil
	}

	options := make([]Option, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.ID == dividerID {
			continue
		}
		options = append(options, Option{
			ID:   r.ID,
			Name: strings.TrimPrefix(r.Text, r.ID+" - "),
		})
	}
	return options
}

// ExtractCourseRefs parses a course search result page into a mapping of
// course code to its timetable URL. A row contributes a pair when its first
// cell holds a course code and the row carries an inline click handler with
// a single-quoted URL. Duplicate codes keep the last row's URL.
func ExtractCourseRefs(markup string) map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return map[string]string{}
	}

	refs := make(map[string]string)
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		code := ""
		tr.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
			if m := courseCodeRegex.FindStringSubmatch(strings.TrimSpace(td.Text())); m != nil {
				code = m[1]
				return false
			}
			return true
		})
		if code == "" {
			return
		}

		courseURL := ""
		tr.Find("[onclick]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			handler, _ := el.Attr("onclick")
			if m := clickURLRegex.FindStringSubmatch(handler); m != nil {
				courseURL = m[1]
				return false
			}
			return true
		})
		if courseURL == "" {
			return
		}

		refs[code] = courseURL
	})

	return refs
}

// ExtractTimetableRows parses a timetable page into raw rows. Rows without
// any cells are skipped entirely; rows with cells are kept even when the
// positional cells are missing or unparseable.
func ExtractTimetableRows(markup string) []RawRow {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	rows := make([]RawRow, 0)
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}

		rows = append(rows, RawRow{
			Time:     strings.TrimSpace(cells.Eq(1).Text()),
			Group:    strings.TrimSpace(cells.Eq(2).Text()),
			Location: strings.TrimSpace(cells.Eq(5).Text()),
		})
	})

	return rows
}

// ParseDayAndTimes extracts the day code and start/end times from a time
// cell. Times are materialized on today's date in loc purely as a carrier
// for hour and minute; callers must compare hour:minute only. Returns
// ok=false when the cell does not match the expected shape, in which case
// the row keeps empty day/start/end rather than being dropped.
func ParseDayAndTimes(timeCell string, loc *time.Location) (day string, start, end time.Time, ok bool) {
	m := dayTimeRegex.FindStringSubmatch(timeCell)
	if m == nil {
		return "", time.Time{}, time.Time{}, false
	}

	start, startOK := parseClock(m[2], loc)
	end, endOK := parseClock(m[3], loc)
	if !startOK || !endOK {
		return "", time.Time{}, time.Time{}, false
	}

	return m[1], start, end, true
}

// parseClock reads the hour and minute from a value like "10:00 AM".
// The meridiem is not applied; the portal's hour digits are kept verbatim,
// matching how the timetable is rendered upstream.
func parseClock(value string, loc *time.Location) (time.Time, bool) {
	if len(value) > 5 {
		value = value[:5]
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, false
	}
	if hour == 0 || minute < 0 || minute > 59 || hour > 23 {
		return time.Time{}, false
	}

	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc), true
}
