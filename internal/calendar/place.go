package calendar

import (
	"sort"
	"time"
)

// Default layout geometry for day/week grids.
const (
	DefaultRowHeight      = 120.0
	DefaultMinEventHeight = 20.0
	MaxVisiblePerCell     = 3
)

// Event is the minimal shape the engine needs to position a session.
type Event struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Layout describes the pixel geometry of the hour grid.
type Layout struct {
	GridStartHour  int
	RowHeight      float64
	MinEventHeight float64
}

// DefaultLayout returns the standard grid geometry.
func DefaultLayout() Layout {
	return Layout{
		GridStartHour:  GridStartHour,
		RowHeight:      DefaultRowHeight,
		MinEventHeight: DefaultMinEventHeight,
	}
}

func (l Layout) normalize() Layout {
	if l.RowHeight <= 0 {
		l.RowHeight = DefaultRowHeight
	}
	if l.MinEventHeight <= 0 {
		l.MinEventHeight = DefaultMinEventHeight
	}
	return l
}

// Placement is a vertical pixel position inside a day column.
type Placement struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Place computes the pixel placement of an event within its day column.
// Events missing a start or end timestamp are unplaceable and return
// ok=false. An event whose end does not come after its start is clamped
// to the minimum visible height so a mis-entered session stays on screen.
// Multi-day events anchor to their start day only.
func Place(ev Event, l Layout) (Placement, bool) {
	if ev.Start.IsZero() || ev.End.IsZero() {
		return Placement{}, false
	}
	l = l.normalize()

	startMin := float64(ev.Start.Hour()*60 + ev.Start.Minute())
	top := (startMin - float64(l.GridStartHour*60)) / 60 * l.RowHeight

	height := ev.End.Sub(ev.Start).Minutes() / 60 * l.RowHeight
	if height < l.MinEventHeight {
		height = l.MinEventHeight
	}

	return Placement{Top: top, Height: height}, true
}

// NowIndicator computes the current-time line position. The indicator is
// visible only when now falls inside the rendered day or week and at or
// after the first grid hour. Refresh cadence is the caller's concern.
func NowIndicator(now time.Time, view View, ref time.Time, l Layout) (float64, bool) {
	switch view {
	case ViewDay:
		if !SameDay(now, ref) {
			return 0, false
		}
	case ViewWeek:
		if !ResolveRange(ViewWeek, ref).Contains(now) {
			return 0, false
		}
	default:
		return 0, false
	}

	l = l.normalize()
	startMin := float64(now.Hour()*60 + now.Minute())
	top := (startMin - float64(l.GridStartHour*60)) / 60 * l.RowHeight
	if top < 0 {
		return 0, false
	}
	return top, true
}

// GroupByDay buckets events by the calendar date of their start timestamp.
// Events without a start are skipped. Buckets are sorted by start time.
func GroupByDay(events []Event) map[string][]Event {
	buckets := make(map[string][]Event)
	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		key := DayKey(ev.Start)
		buckets[key] = append(buckets[key], ev)
	}
	for key := range buckets {
		day := buckets[key]
		sort.Slice(day, func(i, j int) bool { return day[i].Start.Before(day[j].Start) })
		buckets[key] = day
	}
	return buckets
}

// CellEvents is the capped event list shown inside a month/year cell.
type CellEvents struct {
	Visible  []Event `json:"visible"`
	Overflow int     `json:"overflow"`
}

// CapVisible limits the events rendered in a cell, reporting how many
// were hidden. A non-positive max falls back to MaxVisiblePerCell.
func CapVisible(events []Event, max int) CellEvents {
	if max <= 0 {
		max = MaxVisiblePerCell
	}
	if len(events) <= max {
		return CellEvents{Visible: events}
	}
	return CellEvents{Visible: events[:max], Overflow: len(events) - max}
}
