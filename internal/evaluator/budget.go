// Package evaluator turns snapshots of budgets, goals and recurring rules
// into intents. Nothing here touches the store.
package evaluator

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/period"
)

type BudgetStatus string

const (
	StatusOnTrack    BudgetStatus = "on_track"
	StatusNearLimit  BudgetStatus = "near_limit"
	StatusOverBudget BudgetStatus = "over_budget"
)

var (
	hundred       = decimal.NewFromInt(100)
	warnThreshold = decimal.NewFromInt(80)
)

type BudgetAssessment struct {
	BudgetID   uuid.UUID       `json:"budget_id"`
	Name       string          `json:"name"`
	Window     period.Window   `json:"window"`
	Amount     decimal.Decimal `json:"amount"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
	Status     BudgetStatus    `json:"status"`
}

func ValidateBudget(b *models.Budget) error {
	if !b.Amount.IsPositive() {
		return &ValidationError{Kind: "budget", ID: b.ID, Reason: fmt.Sprintf("amount %s is not positive", b.Amount)}
	}
	return nil
}

// Classify maps a spend percentage to a status. Both thresholds are strict.
func Classify(pct decimal.Decimal) BudgetStatus {
	switch {
	case pct.GreaterThan(hundred):
		return StatusOverBudget
	case pct.GreaterThan(warnThreshold):
		return StatusNearLimit
	}
	return StatusOnTrack
}

// AssessBudget measures spent against the budget amount for window.
func AssessBudget(b *models.Budget, window period.Window, spent decimal.Decimal) (BudgetAssessment, error) {
	if err := ValidateBudget(b); err != nil {
		return BudgetAssessment{}, err
	}

	pct := spent.Div(b.Amount).Mul(hundred)
	return BudgetAssessment{
		BudgetID:   b.ID,
		Name:       b.Name,
		Window:     window,
		Amount:     b.Amount,
		Spent:      spent,
		Remaining:  b.Amount.Sub(spent),
		Percentage: pct,
		Status:     Classify(pct),
	}, nil
}

// BudgetAlert returns the alert intent for an assessment, or nil when the
// budget is on track.
func BudgetAlert(b *models.Budget, a BudgetAssessment) *models.Alert {
	var (
		typ      models.AlertType
		title    string
		priority models.Priority
	)
	switch a.Status {
	case StatusOverBudget:
		typ, title, priority = models.AlertBudgetExceeded, fmt.Sprintf("Budget %q exceeded", b.Name), models.PriorityHigh
	case StatusNearLimit:
		typ, title, priority = models.AlertBudgetWarning, fmt.Sprintf("Budget %q near limit", b.Name), models.PriorityMedium
	default:
		return nil
	}

	id := b.ID
	return &models.Alert{
		OwnerID:  b.OwnerID,
		Type:     typ,
		Title:    title,
		Message:  fmt.Sprintf("You've spent $%s of your $%s budget (%s%%)", a.Spent.StringFixed(2), a.Amount.StringFixed(2), a.Percentage.StringFixed(1)),
		Priority: priority,
		Metadata: models.AlertMetadata{BudgetID: &id, BudgetName: b.Name},
	}
}
