// Package deadline turns free-text deadline expressions into absolute UTC
// instants. Date-only inputs always resolve to the end of the target UTC
// day; hour offsets resolve to an exact instant.
package deadline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Errors returned by the explicit-input parsers. The dialogue layer maps
// them to re-prompt messages.
var (
	ErrBadFormat = errors.New("unrecognized deadline format")
	ErrPastDate  = errors.New("deadline date is in the past")
)

var (
	inDaysRe  = regexp.MustCompile(`через\s+(\d+)\s+(?:день|дня|дней)`)
	inHoursRe = regexp.MustCompile(`через\s+(\d+)\s+(?:час|часа|часов)`)
	isoDateRe = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	isoOnlyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dottedRe  = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
)

// rule is one ordered matcher of the free-text resolver.
type rule struct {
	name  string
	apply func(text string, now time.Time) (time.Time, bool)
}

// rules are tried in order; the first match wins.
var rules = []rule{
	{"today", func(text string, now time.Time) (time.Time, bool) {
		if !strings.Contains(text, "сегодня") {
			return time.Time{}, false
		}
		return endOfDay(now), true
	}},
	{"tomorrow", func(text string, now time.Time) (time.Time, bool) {
		if !strings.Contains(text, "завтра") {
			return time.Time{}, false
		}
		return endOfDay(now.AddDate(0, 0, 1)), true
	}},
	{"in-days", func(text string, now time.Time) (time.Time, bool) {
		m := inDaysRe.FindStringSubmatch(text)
		if m == nil {
			return time.Time{}, false
		}
		days, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return endOfDay(now.AddDate(0, 0, days)), true
	}},
	{"in-hours", func(text string, now time.Time) (time.Time, bool) {
		m := inHoursRe.FindStringSubmatch(text)
		if m == nil {
			return time.Time{}, false
		}
		hours, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return now.Add(time.Duration(hours) * time.Hour), true
	}},
	{"iso-date", func(text string, now time.Time) (time.Time, bool) {
		m := isoDateRe.FindString(text)
		if m == "" {
			return time.Time{}, false
		}
		date, err := time.ParseInLocation("2006-01-02", m, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return endOfDay(date), true
	}},
}

// Resolve parses a free-text deadline expression against the ordered rule
// table. Matching is case-insensitive. The second return value reports
// whether any rule matched; no match means no deadline.
func Resolve(freeText string, now time.Time) (time.Time, bool) {
	text := strings.ToLower(freeText)
	for _, r := range rules {
		if ts, ok := r.apply(text, now); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// FromChoice resolves one of the fixed keyboard deadline choices.
func FromChoice(choice string, now time.Time) (time.Time, bool) {
	switch choice {
	case "today":
		return endOfDay(now), true
	case "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), true
	case "3days":
		return endOfDay(now.AddDate(0, 0, 3)), true
	case "week":
		return endOfDay(now.AddDate(0, 0, 7)), true
	default:
		return time.Time{}, false
	}
}

// ParseHours validates explicit hour-count input from the guided dialogue.
// Only positive integers are accepted.
func ParseHours(text string) (int, error) {
	hours, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrBadFormat, text)
	}
	if hours <= 0 {
		return 0, fmt.Errorf("%w: hour count must be positive", ErrBadFormat)
	}
	return hours, nil
}

// ParseDate validates explicit date input from the guided dialogue. Two
// formats are accepted, YYYY-MM-DD and DD.MM.YYYY; the result is the end of
// that UTC day and must be strictly in the future.
func ParseDate(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)

	var (
		date time.Time
		err  error
	)
	switch {
	case isoOnlyRe.MatchString(text):
		date, err = time.ParseInLocation("2006-01-02", text, time.UTC)
	case dottedRe.MatchString(text):
		m := dottedRe.FindStringSubmatch(text)
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		date, err = time.ParseInLocation("2006-01-02",
			fmt.Sprintf("%04d-%02d-%02d", year, month, day), time.UTC)
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadFormat, text)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadFormat, text)
	}

	ts := endOfDay(date)
	if !ts.After(now) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrPastDate, text)
	}
	return ts, nil
}

// endOfDay normalizes an instant to 23:59:59.999 UTC of the same day.
func endOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999_000_000, time.UTC)
}
