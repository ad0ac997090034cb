package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/hray3182/tincan/internal/evaluator"
	"github.com/hray3182/tincan/internal/models"
)

type BudgetReport struct {
	OwnerID   uuid.UUID          `json:"user_id"`
	CheckedAt time.Time          `json:"checked_at"`
	Budgets   []BudgetReportItem `json:"budgets"`
}

type BudgetReportItem struct {
	evaluator.BudgetAssessment
	AlertCreated bool   `json:"alert_created"`
	Error        string `json:"error,omitempty"`
}

// GenerateBudgetAlerts assesses the budgets of every owner.
func (r *Runner) GenerateBudgetAlerts(ctx context.Context) error {
	owners, err := r.store.ListBudgetOwners(ctx)
	if err != nil {
		return fmt.Errorf("list budget owners: %w", err)
	}
	err = r.forEachOwner(ctx, BudgetAlerts, owners, func(ctx context.Context, owner uuid.UUID) error {
		_, err := r.checkBudgets(ctx, BudgetAlerts, owner)
		return err
	})
	logx.Infow("budget alerts generated", logx.Field("owners", len(owners)))
	return err
}

// CheckBudgetsForOwner assesses one owner's budgets on demand.
func (r *Runner) CheckBudgetsForOwner(ctx context.Context, owner uuid.UUID) (*BudgetReport, error) {
	return r.checkBudgets(ctx, budgetCheck, owner)
}

func (r *Runner) checkBudgets(ctx context.Context, job string, owner uuid.UUID) (*BudgetReport, error) {
	budgets, err := r.store.ListBudgetsForOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	now := r.now()
	report := &BudgetReport{OwnerID: owner, CheckedAt: now, Budgets: []BudgetReportItem{}}
	for i := range budgets {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		b := &budgets[i]
		item, err := r.checkBudget(ctx, b, now)
		if err != nil {
			r.entityError(job, err, logx.Field("budget_id", b.ID.String()), logx.Field("owner_id", owner.String()))
			item.BudgetID, item.Name = b.ID, b.Name
			item.Error = err.Error()
		}
		report.Budgets = append(report.Budgets, item)
	}
	return report, nil
}

func (r *Runner) checkBudget(ctx context.Context, b *models.Budget, now time.Time) (BudgetReportItem, error) {
	if err := evaluator.ValidateBudget(b); err != nil {
		return BudgetReportItem{}, err
	}

	window := r.periods.Compute(b.Period, now, b.StartDate, b.EndDate)
	spent, err := r.store.SumExpenseTransactions(ctx, b.OwnerID, b.CategoryID, window.Start, window.End)
	if err != nil {
		return BudgetReportItem{}, fmt.Errorf("sum expenses: %w", err)
	}

	a, err := evaluator.AssessBudget(b, window, spent)
	if err != nil {
		return BudgetReportItem{}, err
	}
	item := BudgetReportItem{BudgetAssessment: a}

	if alert := evaluator.BudgetAlert(b, a); alert != nil {
		created, err := r.commitAlert(ctx, *alert)
		if err != nil {
			return item, fmt.Errorf("commit alert: %w", err)
		}
		item.AlertCreated = created
	}
	return item, nil
}
