package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/campushub/campushub/internal/event"
)

// ErrInvalidRange is wrapped by every ParseDateRange failure
var ErrInvalidRange = errors.New("invalid date range")

var (
	monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|september|oct|october|nov|november|dec|december)`
	isoRangeRe   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s*(?:\.\.|to)\s*(\d{4}-\d{2}-\d{2})$`)
	sameMonthRe  = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRe = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*` + monthPattern + `\s+(\d{1,2})$`)
	wholeMonthRe = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "2026-03-01..2026-03-15" or "2026-03-01 to 2026-03-15" - Explicit dates
//   - "Mar 1-15" or "March 1-15" - Same month, different days
//   - "March 1 - April 15" - Different months
//   - "March" - Entire month
//
// For the month-name formats the year is inferred: a month already past
// this year means next year, and a cross-month range whose end month comes
// first ends in the following year.
//
// Returns (dateFrom, dateTo, error). Times are in UTC.
// Start time is at 00:00:00, end time is at 23:59:59.
func ParseDateRange(input string) (*time.Time, *time.Time, error) {
	return parseDateRangeAt(input, time.Now())
}

func parseDateRangeAt(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("%w: empty", ErrInvalidRange)
	}

	if m := isoRangeRe.FindStringSubmatch(input); m != nil {
		from, err := time.Parse(event.DateLayout, m[1])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: bad date %s", ErrInvalidRange, m[1])
		}
		to, err := time.Parse(event.DateLayout, m[2])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: bad date %s", ErrInvalidRange, m[2])
		}
		return span(from, to)
	}

	if m := sameMonthRe.FindStringSubmatch(input); m != nil {
		month := months[strings.ToLower(m[1])]
		year := yearForMonth(month, now)
		from, err := dateOf(year, month, m[2])
		if err != nil {
			return nil, nil, err
		}
		to, err := dateOf(year, month, m[3])
		if err != nil {
			return nil, nil, err
		}
		return span(from, to)
	}

	if m := crossMonthRe.FindStringSubmatch(input); m != nil {
		startMonth := months[strings.ToLower(m[1])]
		endMonth := months[strings.ToLower(m[3])]
		startYear := yearForMonth(startMonth, now)
		endYear := startYear
		if endMonth < startMonth {
			endYear++
		}
		from, err := dateOf(startYear, startMonth, m[2])
		if err != nil {
			return nil, nil, err
		}
		to, err := dateOf(endYear, endMonth, m[4])
		if err != nil {
			return nil, nil, err
		}
		return span(from, to)
	}

	if m := wholeMonthRe.FindStringSubmatch(input); m != nil {
		month := months[strings.ToLower(m[1])]
		year := yearForMonth(month, now)
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		return span(first, first.AddDate(0, 1, -1))
	}

	return nil, nil, fmt.Errorf("%w: use '2026-03-01..2026-03-15', 'Mar 1-15', 'March 1 - April 15' or 'March'", ErrInvalidRange)
}

// span turns two calendar dates into an inclusive [start-of-day, end-of-day] range
func span(from, to time.Time) (*time.Time, *time.Time, error) {
	end := to.Add(24*time.Hour - time.Second)
	if from.After(end) {
		return nil, nil, fmt.Errorf("%w: start date must be before end date", ErrInvalidRange)
	}
	return &from, &end, nil
}

// dateOf builds midnight UTC for a day-of-month string, rejecting days the
// month does not have.
func dateOf(year int, month time.Month, day string) (time.Time, error) {
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, fmt.Errorf("%w: bad day %s", ErrInvalidRange, day)
	}
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != month {
		return time.Time{}, fmt.Errorf("%w: %s has no day %d", ErrInvalidRange, month, d)
	}
	return t, nil
}

// yearForMonth returns now's year, or the next one if month has passed
func yearForMonth(month time.Month, now time.Time) int {
	if month < now.Month() {
		return now.Year() + 1
	}
	return now.Year()
}
