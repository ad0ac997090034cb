// Package period computes the calendar window a budget is measured over.
//
// All dates are calendar days represented as UTC midnights. Windows are
// inclusive on both ends.
package period

import (
	"strings"
	"time"

	"github.com/hray3182/tincan/internal/models"
)

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of calendar days covered.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// Day returns the calendar date of t, in t's own location, as a UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Calculator computes windows with a configurable week start.
type Calculator struct {
	WeekStart time.Weekday
}

// Default anchors weeks on Sunday.
var Default = Calculator{WeekStart: time.Sunday}

// Compute is Default.Compute.
func Compute(kind models.BudgetPeriod, ref time.Time, start, end *time.Time) Window {
	return Default.Compute(kind, ref, start, end)
}

// Compute returns the window for kind containing ref. Custom windows use
// start and end verbatim and fall back to the monthly window when either
// is missing. Unknown kinds are treated as custom.
func (c Calculator) Compute(kind models.BudgetPeriod, ref time.Time, start, end *time.Time) Window {
	day := Day(ref)

	switch kind {
	case models.PeriodMonthly:
		return monthly(day)
	case models.PeriodWeekly:
		offset := (int(day.Weekday()) - int(c.WeekStart) + 7) % 7
		s := day.AddDate(0, 0, -offset)
		return Window{Start: s, End: s.AddDate(0, 0, 6)}
	case models.PeriodQuarterly:
		firstMonth := time.Month((int(day.Month())-1)/3*3 + 1)
		s := time.Date(day.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: s, End: s.AddDate(0, 3, -1)}
	case models.PeriodYearly:
		return Window{
			Start: time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(day.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
		}
	}

	if start == nil || end == nil {
		return monthly(day)
	}
	return Window{Start: Day(*start), End: Day(*end)}
}

func monthly(day time.Time) Window {
	s := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: s, End: s.AddDate(0, 1, -1)}
}

// ParseWeekday accepts english weekday names, case-insensitive.
func ParseWeekday(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, true
		}
	}
	return time.Sunday, false
}
