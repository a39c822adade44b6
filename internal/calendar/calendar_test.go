package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestResolveRangeDay(t *testing.T) {
	rng := ResolveRange(ViewDay, date(2024, time.March, 5, 14, 30))
	assert.Equal(t, date(2024, time.March, 5, 0, 0), rng.Start)
	assert.Equal(t, date(2024, time.March, 6, 0, 0), rng.End)
}

func TestResolveRangeWeekStartsMonday(t *testing.T) {
	// 2024-03-05 is a Tuesday.
	rng := ResolveRange(ViewWeek, date(2024, time.March, 5, 10, 0))
	assert.Equal(t, time.Monday, rng.Start.Weekday())
	assert.Equal(t, date(2024, time.March, 4, 0, 0), rng.Start)
	assert.Equal(t, date(2024, time.March, 11, 0, 0), rng.End)

	// A Monday reference resolves to its own week.
	monday := date(2024, time.March, 4, 0, 0)
	assert.Equal(t, monday, ResolveRange(ViewWeek, monday).Start)
}

func TestResolveRangeMonthPadsToFullWeeks(t *testing.T) {
	rng := ResolveRange(ViewMonth, date(2024, time.March, 15, 0, 0))
	assert.Equal(t, time.Monday, rng.Start.Weekday())
	assert.Equal(t, time.Monday, rng.End.Weekday())
	// March 2024 starts on a Friday, so the grid reaches back into February.
	assert.Equal(t, date(2024, time.February, 26, 0, 0), rng.Start)
	assert.Equal(t, date(2024, time.April, 1, 0, 0), rng.End)
	assert.Equal(t, time.Sunday, rng.End.AddDate(0, 0, -1).Weekday())
}

func TestResolveRangeYear(t *testing.T) {
	rng := ResolveRange(ViewYear, date(2024, time.June, 15, 0, 0))
	assert.Equal(t, date(2024, time.January, 1, 0, 0), rng.Start)
	assert.Equal(t, date(2025, time.January, 1, 0, 0), rng.End)
}

func TestResolveRangeAlwaysOrdered(t *testing.T) {
	views := []View{ViewDay, ViewWeek, ViewMonth, ViewYear}
	refs := []time.Time{
		date(2024, time.January, 1, 0, 0),
		date(2024, time.February, 29, 12, 0),
		date(2024, time.December, 31, 23, 59),
		date(2023, time.July, 9, 6, 15),
	}
	for _, view := range views {
		for _, ref := range refs {
			rng := ResolveRange(view, ref)
			assert.True(t, rng.Start.Before(rng.End), "%s %s", view, ref)
		}
	}
}

func TestHourCellsWindow(t *testing.T) {
	cells := HourCells()
	require.Len(t, cells, 17)
	assert.Equal(t, 7, cells[0].Hour)
	assert.Equal(t, "07:00", cells[0].Label)
	assert.Equal(t, 23, cells[16].Hour)
	assert.Equal(t, "23:00", cells[16].Label)
}

func TestWeekDays(t *testing.T) {
	days := WeekDays(date(2024, time.March, 7, 0, 0))
	require.Len(t, days, 7)
	assert.Equal(t, time.Monday, days[0].Weekday())
	assert.Equal(t, time.Sunday, days[6].Weekday())
	assert.Equal(t, date(2024, time.March, 4, 0, 0), days[0])
}

func TestMonthCellsCompleteness(t *testing.T) {
	ref := date(2024, time.March, 15, 0, 0)
	now := date(2024, time.March, 5, 10, 0)
	weeks := MonthCells(ref, now)

	rng := ResolveRange(ViewMonth, ref)
	seen := make(map[string]int)
	total := 0
	for _, week := range weeks {
		require.Len(t, week, 7)
		for _, cell := range week {
			seen[DayKey(cell.Date)]++
			total++
			assert.True(t, rng.Contains(cell.Date))
		}
	}
	assert.Zero(t, total%7)

	for d := rng.Start; d.Before(rng.End); d = d.AddDate(0, 0, 1) {
		assert.Equal(t, 1, seen[DayKey(d)], "date %s", DayKey(d))
	}
}

func TestMonthCellsFlags(t *testing.T) {
	ref := date(2024, time.March, 15, 0, 0)
	now := date(2024, time.March, 5, 10, 0)
	weeks := MonthCells(ref, now)

	// First row starts in February spillover.
	assert.False(t, weeks[0][0].InMonth)

	var todayCount int
	for _, week := range weeks {
		for _, cell := range week {
			if cell.Today {
				todayCount++
				assert.True(t, SameDay(cell.Date, now))
			}
			if cell.InMonth {
				assert.Equal(t, time.March, cell.Date.Month())
			}
		}
	}
	assert.Equal(t, 1, todayCount)
}

func TestMonthCellsDeterministic(t *testing.T) {
	ref := date(2024, time.June, 15, 0, 0)
	now := date(2024, time.June, 20, 8, 0)
	assert.Equal(t, MonthCells(ref, now), MonthCells(ref, now))
}

func TestYearBlocks(t *testing.T) {
	ref := date(2024, time.June, 15, 0, 0)
	now := date(2024, time.June, 15, 9, 0)
	events := []Event{
		{ID: "1", Start: date(2024, time.April, 10, 18, 0), End: date(2024, time.April, 10, 19, 0)},
	}

	blocks := YearBlocks(ref, now, events)
	require.Len(t, blocks, 12)

	for _, block := range blocks {
		cells := 0
		for _, week := range block.Weeks {
			require.Len(t, week, 7)
			cells += len(week)
		}
		assert.Zero(t, cells%7, "month %s", block.Month)
	}

	var flagged int
	for _, week := range blocks[int(time.April)-1].Weeks {
		for _, cell := range week {
			if cell.HasEvents {
				flagged++
				assert.True(t, SameDay(cell.Date, events[0].Start))
			}
		}
	}
	assert.Equal(t, 1, flagged)
}

func TestPlaceOffsetAndHeight(t *testing.T) {
	ev := Event{
		ID:    "1",
		Start: date(2024, time.March, 5, 9, 0),
		End:   date(2024, time.March, 5, 10, 30),
	}
	placement, ok := Place(ev, Layout{GridStartHour: 7, RowHeight: 120})
	require.True(t, ok)
	assert.Equal(t, 240.0, placement.Top)
	assert.Equal(t, 180.0, placement.Height)
}

func TestPlaceMissingTimestamps(t *testing.T) {
	_, ok := Place(Event{ID: "1", End: date(2024, time.March, 5, 10, 0)}, DefaultLayout())
	assert.False(t, ok)

	_, ok = Place(Event{ID: "2", Start: date(2024, time.March, 5, 10, 0)}, DefaultLayout())
	assert.False(t, ok)
}

func TestPlaceClampsInvertedRange(t *testing.T) {
	ev := Event{
		ID:    "1",
		Start: date(2024, time.March, 5, 10, 0),
		End:   date(2024, time.March, 5, 9, 0),
	}
	placement, ok := Place(ev, DefaultLayout())
	require.True(t, ok)
	assert.Equal(t, DefaultMinEventHeight, placement.Height)
}

func TestNowIndicator(t *testing.T) {
	layout := Layout{GridStartHour: 7, RowHeight: 120}
	ref := date(2024, time.March, 5, 0, 0)

	top, visible := NowIndicator(date(2024, time.March, 5, 9, 0), ViewDay, ref, layout)
	require.True(t, visible)
	assert.Equal(t, 240.0, top)

	_, visible = NowIndicator(date(2024, time.March, 6, 9, 0), ViewDay, ref, layout)
	assert.False(t, visible)

	// Same week as the reference date.
	_, visible = NowIndicator(date(2024, time.March, 8, 9, 0), ViewWeek, ref, layout)
	assert.True(t, visible)

	_, visible = NowIndicator(date(2024, time.March, 12, 9, 0), ViewWeek, ref, layout)
	assert.False(t, visible)

	// Hidden before the first grid hour.
	_, visible = NowIndicator(date(2024, time.March, 5, 6, 30), ViewDay, ref, layout)
	assert.False(t, visible)
}

func TestGroupByDay(t *testing.T) {
	events := []Event{
		{ID: "late", Start: date(2024, time.March, 5, 18, 0), End: date(2024, time.March, 5, 19, 0)},
		{ID: "early", Start: date(2024, time.March, 5, 9, 0), End: date(2024, time.March, 5, 10, 0)},
		{ID: "other", Start: date(2024, time.March, 6, 9, 0), End: date(2024, time.March, 6, 10, 0)},
		{ID: "skipped"},
	}

	buckets := GroupByDay(events)
	require.Len(t, buckets, 2)
	day := buckets["2024-03-05"]
	require.Len(t, day, 2)
	assert.Equal(t, "early", day[0].ID)
	assert.Equal(t, "late", day[1].ID)
}

func TestCapVisible(t *testing.T) {
	events := []Event{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}}

	capped := CapVisible(events, 3)
	assert.Len(t, capped.Visible, 3)
	assert.Equal(t, 2, capped.Overflow)

	small := CapVisible(events[:2], 3)
	assert.Len(t, small.Visible, 2)
	assert.Zero(t, small.Overflow)
}
