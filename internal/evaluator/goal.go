package evaluator

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hray3182/tincan/internal/models"
)

// Milestones below completion. Completion is milestone CompletionMilestone.
var Milestones = []int{25, 50, 75}

const (
	CompletionMilestone = 100
	deadlineHorizonDays = 7
)

type GoalProgress struct {
	GoalID        uuid.UUID       `json:"goal_id"`
	Percentage    decimal.Decimal `json:"percentage"` // unclamped on overshoot
	Completed     bool            `json:"completed"`
	DaysRemaining *int            `json:"days_remaining,omitempty"`
}

// AssessGoal computes progress at now. A non-positive target yields 0% and
// never counts as completed; the deadline is still evaluated.
func AssessGoal(g *models.Goal, now time.Time) GoalProgress {
	p := GoalProgress{GoalID: g.ID, Percentage: decimal.Zero}

	if g.TargetDate != nil {
		d := int(math.Ceil(g.TargetDate.Sub(now).Hours() / 24))
		p.DaysRemaining = &d
	}

	if !g.TargetAmount.IsPositive() {
		return p
	}

	p.Percentage = g.CurrentAmount.Div(g.TargetAmount).Mul(hundred)
	p.Completed = g.IsCompleted()
	return p
}

// GoalAlerts returns every alert condition currently true for g. Repeats are
// filtered by the dedup gate, not here.
func GoalAlerts(g *models.Goal, now time.Time) []models.Alert {
	p := AssessGoal(g, now)

	var alerts []models.Alert
	for _, m := range Milestones {
		if p.Percentage.GreaterThanOrEqual(decimal.NewFromInt(int64(m))) {
			alerts = append(alerts, milestoneAlert(g, m))
		}
	}
	if p.Completed {
		alerts = append(alerts, completionAlert(g))
	}
	if !p.Completed && p.DaysRemaining != nil {
		if d := *p.DaysRemaining; d > 0 && d <= deadlineHorizonDays {
			alerts = append(alerts, deadlineAlert(g, d))
		}
	}
	return alerts
}

func goalMetadata(g *models.Goal) models.AlertMetadata {
	id := g.ID
	return models.AlertMetadata{GoalID: &id, GoalName: g.Name}
}

func milestoneAlert(g *models.Goal, milestone int) models.Alert {
	md := goalMetadata(g)
	md.Milestone = milestone
	return models.Alert{
		OwnerID:  g.OwnerID,
		Type:     models.AlertGoalMilestone,
		Title:    fmt.Sprintf("%d%% progress on goal %q", milestone, g.Name),
		Message:  fmt.Sprintf("Great progress! You're %d%% of the way to your $%s goal.", milestone, g.TargetAmount.StringFixed(2)),
		Priority: models.PriorityMedium,
		Metadata: md,
	}
}

func completionAlert(g *models.Goal) models.Alert {
	md := goalMetadata(g)
	md.Milestone = CompletionMilestone
	return models.Alert{
		OwnerID:  g.OwnerID,
		Type:     models.AlertGoalMilestone,
		Title:    fmt.Sprintf("Goal %q completed! 🎉", g.Name),
		Message:  fmt.Sprintf("Congratulations! You've reached your goal of $%s.", g.TargetAmount.StringFixed(2)),
		Priority: models.PriorityHigh,
		Metadata: md,
	}
}

func deadlineAlert(g *models.Goal, days int) models.Alert {
	msg := fmt.Sprintf("Your goal %q deadline is in %d days.", g.Name, days)
	priority := models.PriorityMedium
	if days <= 1 {
		msg = fmt.Sprintf("Your goal %q deadline is tomorrow!", g.Name)
		priority = models.PriorityHigh
	}

	md := goalMetadata(g)
	md.DaysRemaining = days
	return models.Alert{
		OwnerID:  g.OwnerID,
		Type:     models.AlertGoalDeadline,
		Title:    "Goal deadline approaching",
		Message:  msg,
		Priority: priority,
		Metadata: md,
	}
}
