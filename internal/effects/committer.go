// Package effects persists evaluator intents.
package effects

import (
	"context"
	"fmt"

	"github.com/hray3182/tincan/internal/dedup"
	"github.com/hray3182/tincan/internal/evaluator"
	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/store"
)

type Committer struct {
	rules store.RecurringStore
	gate  *dedup.Gate
}

func NewCommitter(rules store.RecurringStore, gate *dedup.Gate) *Committer {
	return &Committer{rules: rules, gate: gate}
}

// Materialize advances the rule and writes its transaction in one unit.
// It reports false, with no error, when another run already advanced the
// rule past intent.Advance.ExpectedNextDue.
func (c *Committer) Materialize(ctx context.Context, intent evaluator.MaterializeIntent) (bool, error) {
	applied := false
	err := c.rules.InUnit(ctx, func(ctx context.Context, u store.Unit) error {
		ok, err := u.AdvanceRecurringRule(ctx, intent.Advance)
		if err != nil {
			return fmt.Errorf("advance rule: %w", err)
		}
		if !ok {
			return nil
		}
		tx := intent.Transaction
		if err := u.InsertTransaction(ctx, &tx); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Alert commits alert through the dedup gate.
func (c *Committer) Alert(ctx context.Context, alert models.Alert) (dedup.Decision, error) {
	return c.gate.Commit(ctx, &alert)
}
