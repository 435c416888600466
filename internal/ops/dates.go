package ops

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDateInput accepts "hoy", "ayer" (or their English forms), an empty
// string for today, or YYYY-MM-DD. The result is noon UTC of that day so
// that the stored instant falls on the same calendar day in any timezone
// near UTC.
func ParseDateInput(input string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	switch s {
	case "", "hoy", "today":
		return noon(now), nil
	case "ayer", "yesterday":
		return noon(now.AddDate(0, 0, -1)), nil
	}

	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha inválida %q, usa hoy, ayer o AAAA-MM-DD", ErrValidation, input)
	}
	return noon(d), nil
}

// ParseOccurredAt accepts anything ParseDateInput does, or a full RFC 3339
// timestamp which is kept as given.
func ParseOccurredAt(input string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(input)); err == nil {
		return t.UTC(), nil
	}
	return ParseDateInput(input, now)
}

// DayRange converts inclusive YYYY-MM-DD bounds to the half-open instant
// range [from 00:00, to+1 00:00) in UTC.
func DayRange(from, to string) (time.Time, time.Time, error) {
	f, err := time.Parse(dateLayout, strings.TrimSpace(from))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrValidation)
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(to))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrValidation)
	}
	if t.Before(f) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from is after to", ErrValidation)
	}
	return f, t.AddDate(0, 0, 1), nil
}

// CurrentWeek returns the Monday and Sunday of the week containing now.
func CurrentWeek(now time.Time) (from, to string) {
	now = now.UTC()
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)
	return monday.Format(dateLayout), monday.AddDate(0, 0, 6).Format(dateLayout)
}

func noon(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}
