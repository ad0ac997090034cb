package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hray3182/tincan/internal/models"
)

// timeoutStore bounds every call with a deadline and marks recoverable
// failures transient.
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout decorates s so that no call blocks longer than d. A whole
// InUnit call shares one deadline.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: d}
}

func (s *timeoutStore) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.timeout)
}

func (s *timeoutStore) ListActiveRecurringRulesDueBy(ctx context.Context, day time.Time) ([]models.RecurringRule, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	rules, err := s.next.ListActiveRecurringRulesDueBy(ctx, day)
	return rules, Transient("list due rules", err)
}

func (s *timeoutStore) InUnit(ctx context.Context, fn func(ctx context.Context, u Unit) error) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return Transient("unit of work", s.next.InUnit(ctx, fn))
}

func (s *timeoutStore) ListBudgetOwners(ctx context.Context) ([]uuid.UUID, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	ids, err := s.next.ListBudgetOwners(ctx)
	return ids, Transient("list budget owners", err)
}

func (s *timeoutStore) ListBudgetsForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Budget, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	budgets, err := s.next.ListBudgetsForOwner(ctx, ownerID)
	return budgets, Transient("list budgets", err)
}

func (s *timeoutStore) SumExpenseTransactions(ctx context.Context, ownerID uuid.UUID, categoryID *uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	sum, err := s.next.SumExpenseTransactions(ctx, ownerID, categoryID, start, end)
	return sum, Transient("sum expenses", err)
}

func (s *timeoutStore) ListGoalOwners(ctx context.Context) ([]uuid.UUID, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	ids, err := s.next.ListGoalOwners(ctx)
	return ids, Transient("list goal owners", err)
}

func (s *timeoutStore) ListGoalsForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Goal, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	goals, err := s.next.ListGoalsForOwner(ctx, ownerID)
	return goals, Transient("list goals", err)
}

func (s *timeoutStore) FindRecentAlert(ctx context.Context, ownerID uuid.UUID, typ models.AlertType, sourceID uuid.UUID, since time.Time) (*models.Alert, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	a, err := s.next.FindRecentAlert(ctx, ownerID, typ, sourceID, since)
	return a, Transient("find recent alert", err)
}

func (s *timeoutStore) FindAlertByMilestone(ctx context.Context, goalID uuid.UUID, milestone int) (*models.Alert, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	a, err := s.next.FindAlertByMilestone(ctx, goalID, milestone)
	return a, Transient("find milestone alert", err)
}

func (s *timeoutStore) InsertAlertIfAbsent(ctx context.Context, alert *models.Alert, key models.DedupKey) (bool, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	ok, err := s.next.InsertAlertIfAbsent(ctx, alert, key)
	return ok, Transient("insert alert", err)
}

func (s *timeoutStore) PurgeAlerts(ctx context.Context, readBefore, now time.Time) (PurgeResult, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	res, err := s.next.PurgeAlerts(ctx, readBefore, now)
	return res, Transient("purge alerts", err)
}

func (s *timeoutStore) ListDigestRecipients(ctx context.Context) ([]models.NotificationPreference, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	prefs, err := s.next.ListDigestRecipients(ctx)
	return prefs, Transient("list digest recipients", err)
}

func (s *timeoutStore) ListUnreadAlertsSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]models.Alert, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	alerts, err := s.next.ListUnreadAlertsSince(ctx, ownerID, since)
	return alerts, Transient("list unread alerts", err)
}

func (s *timeoutStore) MarkDigestSent(ctx context.Context, ownerID uuid.UUID, at time.Time) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return Transient("mark digest sent", s.next.MarkDigestSent(ctx, ownerID, at))
}
