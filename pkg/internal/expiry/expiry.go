// Package expiry derives asset validity from expiration markers. All
// functions are pure; callers supply the reference instant.
package expiry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultValidityDays is applied when an upload carries no policy.
const DefaultValidityDays = 30

// DateLayout is the calendar-date form markers are persisted in.
const DateLayout = "2006-01-02"

// ResolveMarker turns a raw validity policy into an absolute calendar date.
// A non-negative integer is read as a day count from the reference instant,
// an empty policy defaults to DefaultValidityDays, and anything else is
// assumed to already be a date and passes through unchanged. Calendar
// correctness of a passed-through value is not checked here; a later parse
// failure is the signal.
func ResolveMarker(rawPolicy string, ref time.Time) string {
	raw := strings.TrimSpace(rawPolicy)
	if raw == "" {
		return FormatDate(ref.AddDate(0, 0, DefaultValidityDays))
	}

	if days, err := strconv.Atoi(raw); err == nil && days >= 0 {
		return FormatDate(ref.AddDate(0, 0, days))
	}

	return raw
}

// RemainingDays reports the whole days between now and the expiration
// instant, both truncated to calendar dates first so time of day never
// affects the result. Zero or negative means expired; the expiration date
// itself counts as expired, not as a last valid day.
func RemainingDays(expiration, now time.Time) int {
	diff := truncateToDate(expiration).Sub(truncateToDate(now))

	return int(diff / (24 * time.Hour))
}

// ParseExpiration parses a persisted expiration marker. Both the date-only
// form and full RFC 3339 instants from legacy producers are accepted.
func ParseExpiration(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid expiration marker %q", raw)
}

// FormatDate renders an instant as a date-only marker.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// truncateToDate normalizes an instant to its calendar date. The date is
// rebuilt in UTC so day arithmetic is immune to DST shifts.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
