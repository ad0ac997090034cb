package scheduler

import (
	"fmt"
	"time"

	"github.com/hray3182/tincan/internal/rrule"
)

// Trigger yields fire times. Next returns the zero time when the trigger
// will never fire again.
type Trigger interface {
	Next(after time.Time) time.Time
	String() string
}

// Anchor is the dtstart used for calendar triggers.
var Anchor = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type interval time.Duration

// Every fires at a fixed interval after each scheduling point.
func Every(d time.Duration) Trigger {
	return interval(d)
}

func (i interval) Next(after time.Time) time.Time {
	if i <= 0 {
		return time.Time{}
	}
	return after.Add(time.Duration(i))
}

func (i interval) String() string {
	return "every " + time.Duration(i).String()
}

type calendar struct {
	sched *rrule.Schedule
}

// RRule fires on the occurrences of an RFC 5545 rule evaluated in UTC.
func RRule(rule string) (Trigger, error) {
	sched, err := rrule.Parse(rule, Anchor)
	if err != nil {
		return nil, err
	}
	return calendar{sched: sched}, nil
}

// DailyAt fires every day at hour:minute UTC.
func DailyAt(hour, minute int) Trigger {
	return mustRRule(rrule.Daily(hour, minute))
}

// WeeklyAt fires on day ("MO".."SU") at hour:minute UTC.
func WeeklyAt(day string, hour, minute int) Trigger {
	return mustRRule(rrule.Weekly(day, hour, minute))
}

func mustRRule(rule string) Trigger {
	t, err := RRule(rule)
	if err != nil {
		panic(fmt.Sprintf("scheduler: invalid built-in rule %q: %v", rule, err))
	}
	return t
}

func (c calendar) Next(after time.Time) time.Time {
	return c.sched.Next(after)
}

func (c calendar) String() string {
	return rrule.Describe(c.sched.String())
}
