package matcher

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyDate     = errors.New("empty date")
	ErrMalformedDate = errors.New("malformed date")
)

// unixEpochOrdinal is the ordinal of 1970-01-01 when 0001-01-01 is day 1.
const unixEpochOrdinal = 719163

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate normalizes a time.Time or ISO-8601 string to a UTC calendar date.
// An empty value returns ErrEmptyDate; anything unparseable returns ErrMalformedDate.
func ParseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, ErrEmptyDate
		}
		return truncateToDate(v), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, ErrEmptyDate
		}
		return truncateToDate(*v), nil
	case string:
		return parseDateString(v)
	case nil:
		return time.Time{}, ErrEmptyDate
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrMalformedDate, value)
	}
}

// decodeDate parses a JSON-decoded date. Null or absent yields the zero time.
func decodeDate(value any) (time.Time, error) {
	if value == nil {
		return time.Time{}, nil
	}
	return ParseDate(value)
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateToDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// truncateToDate keeps the calendar date as seen in t's own location.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ordinal returns the proleptic Gregorian ordinal of t's calendar date,
// with 0001-01-01 as day 1.
func ordinal(t time.Time) int {
	days := truncateToDate(t).Unix() / 86400
	return int(days) + unixEpochOrdinal
}

// daysBetween returns the absolute number of calendar days between a and b.
func daysBetween(a, b time.Time) int {
	diff := ordinal(a) - ordinal(b)
	if diff < 0 {
		return -diff
	}
	return diff
}
