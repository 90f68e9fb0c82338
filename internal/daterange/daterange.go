// Package daterange turns loosely formatted calendar input into inclusive
// ranges of UTC-midnight instants.
package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

var ErrInvalidDate = errors.New("invalid date format")

// Accepted input layouts. Inputs without a zone are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Range is an inclusive pair of UTC-midnight instants.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
}

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	return now.New(t.UTC()).BeginningOfDay()
}

// Month returns the range covering a whole month. month is zero-based
// (0 = January); out-of-range values roll over into neighbouring years.
func Month(year, month int) Range {
	start := now.New(time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)).BeginningOfMonth()
	end := Day(now.New(start).EndOfMonth())
	return Range{Start: start, End: end}
}

// ParseDay parses a date-like string and truncates it to UTC midnight.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Explicit parses both bounds with ParseDay.
func Explicit(start, end string) (Range, error) {
	s, err := ParseDay(start)
	if err != nil {
		return Range{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseDay(end)
	if err != nil {
		return Range{}, fmt.Errorf("end: %w", err)
	}
	return Range{Start: s, End: e}, nil
}
