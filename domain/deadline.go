package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Deadline phrases accepted during task creation.
const (
	DeadlineToday = "today"
	DeadlineWeek  = "week"
	DeadlineDays  = "days"

	MinDeadlineDays = 1
	MaxDeadlineDays = 60
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// EndOfDay returns 23:59:00 of the day t falls on, in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 0, 0, t.Location())
}

// ResolveDeadline maps a creation phrase to a timestamp:
// "today" is today 23:59, "week" is the upcoming Sunday 23:59 (today when it is Sunday),
// "days N" is N days from now at 23:59 with N in [1, 60].
func ResolveDeadline(phrase string, now time.Time) (time.Time, error) {
	folded := cases.Fold().String(strings.TrimSpace(phrase))
	switch folded {
	case DeadlineToday:
		return EndOfDay(now), nil
	case DeadlineWeek:
		ahead := (7 - int(now.Weekday())) % 7
		return EndOfDay(now.AddDate(0, 0, ahead)), nil
	}

	fields := strings.Fields(folded)
	if len(fields) != 2 || fields[0] != DeadlineDays {
		return time.Time{}, ErrInvalidDeadline
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < MinDeadlineDays || n > MaxDeadlineDays {
		return time.Time{}, ErrInvalidDeadline
	}
	return EndOfDay(now.AddDate(0, 0, n)), nil
}

// IsDaysPhrase reports whether the phrase looks like "days ..." so callers can pick a precise hint.
func IsDaysPhrase(phrase string) bool {
	folded := cases.Fold().String(strings.TrimSpace(phrase))
	return strings.HasPrefix(folded, DeadlineDays+" ")
}

// ParseDeadline parses an explicit deadline: "YYYY-MM-DD" (23:59:00 that day) or "YYYY-MM-DD HH:MM".
func ParseDeadline(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.Local
	}
	if len(raw) == len(dateLayout) {
		day, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDeadline, err)
		}
		return EndOfDay(day), nil
	}
	ts, err := time.ParseInLocation(dateTimeLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDeadline, err)
	}
	return ts, nil
}
