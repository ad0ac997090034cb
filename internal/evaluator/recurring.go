package evaluator

import (
	"errors"
	"fmt"
	"time"

	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/period"
	"github.com/hray3182/tincan/internal/recurrence"
)

// ErrNotDue is returned for rules that are inactive, not yet due, or already
// processed today.
var ErrNotDue = errors.New("rule is not due")

// MaterializeIntent is one occurrence of a rule plus the pointer move that
// must be committed with it.
type MaterializeIntent struct {
	Transaction models.Transaction
	Advance     models.RuleAdvance
	// Warning is set when the rule's frequency was not recognized and the
	// monthly step was used.
	Warning *recurrence.UnknownFrequencyError
}

// PlanMaterialization builds the transaction dated today and the advanced
// due date for rule.
func PlanMaterialization(rule *models.RecurringRule, today time.Time) (MaterializeIntent, error) {
	day := period.Day(today)
	if !rule.IsDue(day) || rule.ProcessedOn(day) {
		return MaterializeIntent{}, ErrNotDue
	}

	intent := MaterializeIntent{}
	next, err := recurrence.Next(rule.NextDueDate, rule.Frequency)
	if err != nil {
		var unknown *recurrence.UnknownFrequencyError
		if !errors.As(err, &unknown) {
			return MaterializeIntent{}, err
		}
		intent.Warning = unknown
	}

	ruleID := rule.ID
	intent.Transaction = models.Transaction{
		OwnerID:         rule.OwnerID,
		AccountID:       rule.AccountID,
		CategoryID:      rule.CategoryID,
		Amount:          rule.Amount,
		Date:            day,
		Description:     rule.Description,
		Notes:           fmt.Sprintf("Auto-generated from recurring transaction: %s", rule.Description),
		RecurringRuleID: &ruleID,
		AutoGenerated:   true,
	}
	intent.Advance = models.RuleAdvance{
		RuleID:          rule.ID,
		ExpectedNextDue: rule.NextDueDate,
		NextDue:         next,
		ProcessedOn:     day,
	}
	return intent, nil
}
