package calendar

import (
	"fmt"
	"time"
)

// Fixed hour window of the day and week grids.
const (
	GridStartHour = 7
	GridEndHour   = 23
)

// HourCell is a single hour row in the day/week grids.
type HourCell struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`
}

// DayCell is a single date cell in the month/year grids.
type DayCell struct {
	Date      time.Time `json:"date"`
	InMonth   bool      `json:"inMonth"`
	Today     bool      `json:"today"`
	HasEvents bool      `json:"hasEvents"`
}

// MonthBlock is a mini-month inside the year grid.
type MonthBlock struct {
	Year  int         `json:"year"`
	Month time.Month  `json:"month"`
	Weeks [][]DayCell `json:"weeks"`
}

// HourCells enumerates the hour rows, 07:00 through 23:00 inclusive.
func HourCells() []HourCell {
	cells := make([]HourCell, 0, GridEndHour-GridStartHour+1)
	for h := GridStartHour; h <= GridEndHour; h++ {
		cells = append(cells, HourCell{Hour: h, Label: fmt.Sprintf("%02d:00", h)})
	}
	return cells
}

// WeekDays returns the seven dates of the week containing ref, Monday first.
func WeekDays(ref time.Time) []time.Time {
	start := StartOfWeek(ref)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthCells generates the padded month grid for the month containing ref,
// grouped into rows of seven (Monday through Sunday). Today flags are
// computed against the supplied now so output stays reproducible in tests.
func MonthCells(ref, now time.Time) [][]DayCell {
	rng := ResolveRange(ViewMonth, ref)
	var weeks [][]DayCell
	var row []DayCell
	for d := rng.Start; d.Before(rng.End); d = d.AddDate(0, 0, 1) {
		row = append(row, DayCell{
			Date:    d,
			InMonth: d.Month() == ref.Month() && d.Year() == ref.Year(),
			Today:   SameDay(d, now),
		})
		if len(row) == 7 {
			weeks = append(weeks, row)
			row = nil
		}
	}
	return weeks
}

// YearBlocks generates twelve mini-month grids for the year containing ref.
// Each day cell carries a HasEvents flag derived from the supplied events.
func YearBlocks(ref, now time.Time, events []Event) []MonthBlock {
	eventDays := make(map[string]struct{}, len(events))
	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		eventDays[DayKey(ev.Start)] = struct{}{}
	}

	blocks := make([]MonthBlock, 0, 12)
	for m := time.January; m <= time.December; m++ {
		monthRef := time.Date(ref.Year(), m, 1, 0, 0, 0, 0, ref.Location())
		weeks := MonthCells(monthRef, now)
		for wi := range weeks {
			for di := range weeks[wi] {
				if _, ok := eventDays[DayKey(weeks[wi][di].Date)]; ok {
					weeks[wi][di].HasEvents = true
				}
			}
		}
		blocks = append(blocks, MonthBlock{Year: ref.Year(), Month: m, Weeks: weeks})
	}
	return blocks
}
