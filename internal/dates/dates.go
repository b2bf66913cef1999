// Package dates provides best-effort timestamp coercion. Snapshot
// documents carry dates as strings; authors are sloppy about formats,
// so parsing tolerates RFC3339 with or without a Z suffix and plain
// dates, and reports failure instead of guessing.
package dates

import "time"

// Coerce parses a timestamp string. It accepts RFC3339 and date-only
// forms. The second return is false when the string is empty or
// unparsable; callers choose the fallback appropriate to their context
// rather than treating a bad date as "no date".
func Coerce(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// CoerceOr parses a timestamp, falling back to base plus fallbackDays
// when the string is missing or malformed.
func CoerceOr(s string, base time.Time, fallbackDays int) time.Time {
	if t, ok := Coerce(s); ok {
		return t
	}
	return base.AddDate(0, 0, fallbackDays)
}

// AddDays shifts a time by a fractional number of days.
func AddDays(t time.Time, days float64) time.Time {
	return t.Add(time.Duration(days * 24 * float64(time.Hour)))
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}

// BusinessDays converts calendar days to business days assuming a
// five-day work week.
func BusinessDays(calendarDays float64) float64 {
	return calendarDays * 5 / 7
}
