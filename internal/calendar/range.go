// Package calendar implements the pure scheduling-grid engine: range
// resolution per view, cell generation, and pixel placement of events.
// Everything here is deterministic and free of global state; callers
// inject "now" where today-relative output is needed.
package calendar

import (
	"fmt"
	"time"
)

// View selects the granularity of the rendered grid.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewYear  View = "year"
)

// ParseView validates a raw view name.
func ParseView(raw string) (View, error) {
	switch View(raw) {
	case ViewDay, ViewWeek, ViewMonth, ViewYear:
		return View(raw), nil
	default:
		return "", fmt.Errorf("unknown view %q", raw)
	}
}

// Range is a half-open [Start, End) interval.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ResolveRange computes the interval of dates a view renders around the
// reference date. Weeks start on Monday. Month ranges are padded to full
// weeks so the grid always shows complete rows, including spillover days
// from adjacent months. The reference location is preserved.
func ResolveRange(view View, ref time.Time) Range {
	switch view {
	case ViewWeek:
		start := StartOfWeek(ref)
		return Range{Start: start, End: start.AddDate(0, 0, 7)}
	case ViewMonth:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		last := first.AddDate(0, 1, -1)
		return Range{Start: StartOfWeek(first), End: StartOfWeek(last).AddDate(0, 0, 7)}
	case ViewYear:
		start := time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location())
		return Range{Start: start, End: start.AddDate(1, 0, 0)}
	default:
		start := StartOfDay(ref)
		return Range{Start: start, End: start.AddDate(0, 0, 1)}
	}
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the Monday midnight of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayKey returns the canonical bucket key for a date.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
