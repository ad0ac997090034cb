package evaluator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/tincan/internal/models"
)

var now = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func milestonesOf(alerts []models.Alert) []int {
	var out []int
	for _, a := range alerts {
		if a.Type == models.AlertGoalMilestone {
			out = append(out, a.Metadata.Milestone)
		}
	}
	return out
}

func TestGoalAlertsMilestones(t *testing.T) {
	g := &models.Goal{ID: uuid.New(), OwnerID: uuid.New(), Name: "Trip", TargetAmount: decimal.NewFromInt(1000)}

	tests := []struct {
		current string
		want    []int
	}{
		{"0", nil},
		{"249.99", nil},
		{"260", []int{25}},
		{"510", []int{25, 50}},
		{"750", []int{25, 50, 75}},
		{"1000", []int{25, 50, 75, 100}},
		{"1200", []int{25, 50, 75, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			g.CurrentAmount = decimal.RequireFromString(tt.current)
			alerts := GoalAlerts(g, now)
			assert.Equal(t, tt.want, milestonesOf(alerts))
		})
	}
}

func TestGoalAlertsCompletion(t *testing.T) {
	g := &models.Goal{ID: uuid.New(), Name: "Trip", TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.NewFromInt(1000)}

	alerts := GoalAlerts(g, now)
	require.NotEmpty(t, alerts)
	last := alerts[len(alerts)-1]
	assert.Equal(t, CompletionMilestone, last.Metadata.Milestone)
	assert.Equal(t, models.PriorityHigh, last.Priority)
	assert.Equal(t, `Goal "Trip" completed! 🎉`, last.Title)
	assert.Equal(t, "Congratulations! You've reached your goal of $1000.00.", last.Message)
}

func TestGoalAlertsDeadline(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	tests := []struct {
		name     string
		target   *time.Time
		current  int64
		wantDays int
		priority models.Priority
	}{
		{name: "no date", target: nil},
		{name: "eight days", target: at(8 * 24 * time.Hour)},
		{name: "seven days", target: at(7 * 24 * time.Hour), wantDays: 7, priority: models.PriorityMedium},
		{name: "partial day rounds up", target: at(36 * time.Hour), wantDays: 2, priority: models.PriorityMedium},
		{name: "tomorrow", target: at(time.Hour), wantDays: 1, priority: models.PriorityHigh},
		{name: "past", target: at(-time.Hour)},
		{name: "completed", target: at(2 * 24 * time.Hour), current: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &models.Goal{ID: uuid.New(), Name: "Car", TargetAmount: decimal.NewFromInt(100), CurrentAmount: decimal.NewFromInt(tt.current), TargetDate: tt.target}
			alerts := GoalAlerts(g, now)

			var deadline *models.Alert
			for i := range alerts {
				if alerts[i].Type == models.AlertGoalDeadline {
					deadline = &alerts[i]
				}
			}
			if tt.wantDays == 0 {
				assert.Nil(t, deadline)
				return
			}
			require.NotNil(t, deadline)
			assert.Equal(t, tt.wantDays, deadline.Metadata.DaysRemaining)
			assert.Equal(t, tt.priority, deadline.Priority)
		})
	}
}

func TestAssessGoalNonPositiveTarget(t *testing.T) {
	g := &models.Goal{ID: uuid.New(), TargetAmount: decimal.Zero, CurrentAmount: decimal.NewFromInt(10)}
	p := AssessGoal(g, now)
	assert.True(t, p.Percentage.IsZero())
	assert.False(t, p.Completed)

	assert.Empty(t, GoalAlerts(g, now))
}

func TestGoalAlertsNonPositiveTargetKeepsDeadline(t *testing.T) {
	target := now.Add(3 * 24 * time.Hour)
	g := &models.Goal{ID: uuid.New(), Name: "Gift", TargetAmount: decimal.NewFromInt(-5), CurrentAmount: decimal.Zero, TargetDate: &target}

	alerts := GoalAlerts(g, now)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertGoalDeadline, alerts[0].Type)
	assert.Equal(t, 3, alerts[0].Metadata.DaysRemaining)
}

func TestAssessGoalOvershootUnclamped(t *testing.T) {
	g := &models.Goal{ID: uuid.New(), TargetAmount: decimal.NewFromInt(200), CurrentAmount: decimal.NewFromInt(300)}
	p := AssessGoal(g, now)
	assert.Equal(t, "150", p.Percentage.String())
	assert.True(t, p.Completed)
}
