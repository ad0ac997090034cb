package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/hray3182/tincan/internal/evaluator"
	"github.com/hray3182/tincan/internal/logging"
	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/period"
)

// ProcessRecurringTransactions materializes every rule due today. A failed
// rule stays due for the next tick.
func (r *Runner) ProcessRecurringTransactions(ctx context.Context) error {
	today := period.Day(r.now())
	rules, err := r.store.ListActiveRecurringRulesDueBy(ctx, today)
	if err != nil {
		return fmt.Errorf("list due rules: %w", err)
	}

	var created, skipped int
	for i := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		rule := &rules[i]
		ok, err := r.materialize(ctx, rule)
		if err != nil {
			r.entityError(ProcessRecurring, err, logx.Field("rule_id", rule.ID.String()), logx.Field("owner_id", rule.OwnerID.String()))
			continue
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}

	logx.Infow("recurring transactions processed",
		logx.Field("due", len(rules)),
		logx.Field("created", created),
		logx.Field("skipped", skipped))
	return nil
}

func (r *Runner) materialize(ctx context.Context, rule *models.RecurringRule) (bool, error) {
	intent, err := evaluator.PlanMaterialization(rule, r.now())
	if errors.Is(err, evaluator.ErrNotDue) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if intent.Warning != nil {
		logging.Warnw(intent.Warning.Error(), logx.Field("rule_id", rule.ID.String()))
	}

	applied, err := r.committer.Materialize(ctx, intent)
	if err != nil {
		return false, err
	}
	if !applied {
		logx.Infow("recurring rule already materialized", logx.Field("rule_id", rule.ID.String()))
		return false, nil
	}

	r.metrics.RulesMaterialized.Inc()
	logx.Infow("recurring transaction created",
		logx.Field("rule_id", rule.ID.String()),
		logx.Field("owner_id", rule.OwnerID.String()),
		logx.Field("next_due", intent.Advance.NextDue.Format("2006-01-02")))
	return true, nil
}
