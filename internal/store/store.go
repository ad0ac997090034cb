// Package store defines the data-store boundary the scheduler runs against.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hray3182/tincan/internal/models"
)

// Store is implemented by the PostgreSQL repositories and by Memory.
type Store interface {
	RecurringStore
	BudgetStore
	GoalStore
	AlertStore
	DigestStore
}

type RecurringStore interface {
	ListActiveRecurringRulesDueBy(ctx context.Context, day time.Time) ([]models.RecurringRule, error)
	// InUnit runs fn in one atomic unit. Writes made through the Unit are
	// committed only when fn returns nil.
	InUnit(ctx context.Context, fn func(ctx context.Context, u Unit) error) error
}

// Unit is the write side of a per-rule unit of work.
type Unit interface {
	// AdvanceRecurringRule reports false when the rule no longer matches
	// adv.ExpectedNextDue or was already processed on adv.ProcessedOn.
	AdvanceRecurringRule(ctx context.Context, adv models.RuleAdvance) (bool, error)
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
}

type BudgetStore interface {
	ListBudgetOwners(ctx context.Context) ([]uuid.UUID, error)
	ListBudgetsForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Budget, error)
	// SumExpenseTransactions sums |amount| of expenses dated within [start, end].
	SumExpenseTransactions(ctx context.Context, ownerID uuid.UUID, categoryID *uuid.UUID, start, end time.Time) (decimal.Decimal, error)
}

type GoalStore interface {
	ListGoalOwners(ctx context.Context) ([]uuid.UUID, error)
	ListGoalsForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Goal, error)
}

type AlertStore interface {
	// FindRecentAlert returns the newest alert created strictly after since,
	// or nil.
	FindRecentAlert(ctx context.Context, ownerID uuid.UUID, typ models.AlertType, sourceID uuid.UUID, since time.Time) (*models.Alert, error)
	FindAlertByMilestone(ctx context.Context, goalID uuid.UUID, milestone int) (*models.Alert, error)
	// InsertAlertIfAbsent inserts alert unless key is held by an unexpired
	// claim. The check and the insert are atomic.
	InsertAlertIfAbsent(ctx context.Context, alert *models.Alert, key models.DedupKey) (bool, error)
	PurgeAlerts(ctx context.Context, readBefore, now time.Time) (PurgeResult, error)
}

type DigestStore interface {
	ListDigestRecipients(ctx context.Context) ([]models.NotificationPreference, error)
	ListUnreadAlertsSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]models.Alert, error)
	MarkDigestSent(ctx context.Context, ownerID uuid.UUID, at time.Time) error
}

type PurgeResult struct {
	Alerts int64
	Claims int64
}
