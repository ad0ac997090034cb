package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/hray3182/tincan/internal/evaluator"
	"github.com/hray3182/tincan/internal/logging"
)

// CheckGoalMilestones emits milestone, completion and deadline alerts for
// every owner's goals.
func (r *Runner) CheckGoalMilestones(ctx context.Context) error {
	owners, err := r.store.ListGoalOwners(ctx)
	if err != nil {
		return fmt.Errorf("list goal owners: %w", err)
	}
	err = r.forEachOwner(ctx, CheckGoals, owners, r.checkGoals)
	logx.Infow("goal milestones checked", logx.Field("owners", len(owners)))
	return err
}

func (r *Runner) checkGoals(ctx context.Context, owner uuid.UUID) error {
	goals, err := r.store.ListGoalsForOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("list goals: %w", err)
	}

	now := r.now()
	for i := range goals {
		if err := ctx.Err(); err != nil {
			return err
		}
		g := &goals[i]
		fields := []logx.LogField{logx.Field("goal_id", g.ID.String()), logx.Field("owner_id", owner.String())}

		if !g.TargetAmount.IsPositive() {
			logging.Warnw("goal target is not positive, progress treated as 0%", fields...)
		}
		for _, alert := range evaluator.GoalAlerts(g, now) {
			if _, err := r.commitAlert(ctx, alert); err != nil {
				r.entityError(CheckGoals, fmt.Errorf("commit %s alert: %w", alert.Type, err), fields...)
			}
		}
	}
	return nil
}
