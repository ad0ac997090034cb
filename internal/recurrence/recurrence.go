// Package recurrence advances recurring transaction rules.
package recurrence

import (
	"fmt"
	"time"

	"github.com/hray3182/tincan/internal/models"
)

// UnknownFrequencyError reports a frequency Next does not recognize.
// Next still returns the monthly advancement alongside it.
type UnknownFrequencyError struct {
	Frequency models.Frequency
}

func (e *UnknownFrequencyError) Error() string {
	return fmt.Sprintf("unknown frequency %q, defaulting to monthly", string(e.Frequency))
}

// Next returns the occurrence after current. Calendar-month steps keep the
// day of month and clamp it to the last day of shorter target months.
func Next(current time.Time, freq models.Frequency) (time.Time, error) {
	switch freq {
	case models.FrequencyDaily:
		return current.AddDate(0, 0, 1), nil
	case models.FrequencyWeekly:
		return current.AddDate(0, 0, 7), nil
	case models.FrequencyBiweekly:
		return current.AddDate(0, 0, 14), nil
	case models.FrequencyMonthly:
		return AddMonths(current, 1), nil
	case models.FrequencyQuarterly:
		return AddMonths(current, 3), nil
	case models.FrequencyYearly:
		return AddMonths(current, 12), nil
	}
	return AddMonths(current, 1), &UnknownFrequencyError{Frequency: freq}
}

// AddMonths adds n calendar months, clamping the day of month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
