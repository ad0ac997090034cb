package jobs

import (
	"fmt"
	"time"

	"github.com/hray3182/tincan/internal/config"
	"github.com/hray3182/tincan/internal/scheduler"
)

// Defaults returns the job table with built-in UTC triggers. The digest is
// enabled only when a notifier is configured.
func (r *Runner) Defaults() []scheduler.Job {
	return []scheduler.Job{
		{Name: ProcessRecurring, Trigger: scheduler.DailyAt(6, 0), Enabled: true, Handler: r.ProcessRecurringTransactions},
		{Name: CheckGoals, Trigger: scheduler.DailyAt(7, 0), Enabled: true, Handler: r.CheckGoalMilestones},
		{Name: BudgetAlerts, Trigger: scheduler.DailyAt(8, 0), Enabled: true, Handler: r.GenerateBudgetAlerts},
		{Name: SendDigest, Trigger: scheduler.Every(15 * time.Minute), Enabled: r.notifier != nil, Handler: r.SendNotificationDigests},
		{Name: CleanupAlerts, Trigger: scheduler.WeeklyAt("SU", 2, 0), Enabled: true, Handler: r.CleanupAlerts},
	}
}

// ApplyOverrides returns jobs with overrides applied. An override naming an
// unknown job is an error.
func ApplyOverrides(jobs []scheduler.Job, overrides config.JobOverrides) ([]scheduler.Job, error) {
	index := make(map[string]int, len(jobs))
	for i, j := range jobs {
		index[j.Name] = i
	}

	out := append([]scheduler.Job(nil), jobs...)
	for name, o := range overrides {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: override for unknown job %q", scheduler.ErrInvalidJob, name)
		}
		if o.Enabled != nil {
			out[i].Enabled = *o.Enabled
		}
		switch {
		case o.Schedule != "":
			t, err := scheduler.RRule(o.Schedule)
			if err != nil {
				return nil, fmt.Errorf("%w: %s schedule: %v", scheduler.ErrInvalidJob, name, err)
			}
			out[i].Trigger = t
		case o.Every > 0:
			out[i].Trigger = scheduler.Every(o.Every)
		}
	}
	return out, nil
}

// Register adds the runner's jobs, with overrides, to s.
func (r *Runner) Register(s *scheduler.Scheduler, overrides config.JobOverrides) error {
	jobs, err := ApplyOverrides(r.Defaults(), overrides)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if err := s.Register(j); err != nil {
			return err
		}
	}
	return nil
}
