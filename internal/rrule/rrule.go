// Package rrule wraps RFC 5545 recurrence rules used as job schedules.
package rrule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Schedule is a parsed rule anchored at a UTC start instant.
type Schedule struct {
	source string
	rule   *rrule.RRule
}

// Parse parses an RRULE string. dtstart anchors the rule and is converted
// to UTC so BYHOUR/BYMINUTE are interpreted in UTC.
func Parse(ruleStr string, dtstart time.Time) (*Schedule, error) {
	ruleStr = strings.TrimPrefix(strings.TrimSpace(ruleStr), "RRULE:")
	if !IsRecurring(ruleStr) {
		return nil, fmt.Errorf("rule %q has no FREQ", ruleStr)
	}

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE: %w", err)
	}
	opt.Dtstart = dtstart.UTC()

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build RRULE: %w", err)
	}
	return &Schedule{source: ruleStr, rule: rule}, nil
}

// Next returns the first occurrence strictly after after, or the zero time
// when the rule is exhausted.
func (s *Schedule) Next(after time.Time) time.Time {
	return s.rule.After(after.UTC(), false)
}

func (s *Schedule) String() string {
	return s.source
}

// Daily builds a rule firing every day at hour:minute UTC.
func Daily(hour, minute int) string {
	return fmt.Sprintf("FREQ=DAILY;BYHOUR=%d;BYMINUTE=%d;BYSECOND=0", hour, minute)
}

// Weekly builds a rule firing once a week on day ("MO".."SU") at hour:minute UTC.
func Weekly(day string, hour, minute int) string {
	return fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s;BYHOUR=%d;BYMINUTE=%d;BYSECOND=0", day, hour, minute)
}

// Describe returns a short english description of the rule.
func Describe(ruleStr string) string {
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	info := make(map[string]string)
	for _, p := range strings.Split(ruleStr, ";") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 {
			info[kv[0]] = kv[1]
		}
	}

	var b strings.Builder
	interval := info["INTERVAL"]
	unit := map[string]string{
		"MINUTELY": "minute",
		"HOURLY":   "hour",
		"DAILY":    "day",
		"WEEKLY":   "week",
		"MONTHLY":  "month",
		"YEARLY":   "year",
	}[info["FREQ"]]
	if unit == "" {
		return ruleStr
	}
	if interval == "" || interval == "1" {
		b.WriteString("every " + unit)
	} else {
		b.WriteString(fmt.Sprintf("every %s %ss", interval, unit))
	}

	if byDay := info["BYDAY"]; byDay != "" {
		dayNames := map[string]string{
			"MO": "Mon", "TU": "Tue", "WE": "Wed", "TH": "Thu",
			"FR": "Fri", "SA": "Sat", "SU": "Sun",
		}
		var days []string
		for _, d := range strings.Split(byDay, ",") {
			if name, ok := dayNames[d]; ok {
				days = append(days, name)
			}
		}
		if len(days) > 0 {
			b.WriteString(" on " + strings.Join(days, ","))
		}
	}

	if hour, err := strconv.Atoi(info["BYHOUR"]); err == nil {
		minute, _ := strconv.Atoi(info["BYMINUTE"])
		b.WriteString(fmt.Sprintf(" at %02d:%02d UTC", hour, minute))
	}
	return b.String()
}

// IsRecurring checks if the string carries a frequency.
func IsRecurring(ruleStr string) bool {
	return ruleStr != "" && strings.Contains(strings.ToUpper(ruleStr), "FREQ=")
}
