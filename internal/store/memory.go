package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hray3182/tincan/internal/models"
)

// Memory is an in-process Store for development and tests. Uniqueness and
// unit-of-work atomicity hold under a single mutex.
type Memory struct {
	mu           sync.RWMutex
	rules        map[uuid.UUID]models.RecurringRule
	budgets      map[uuid.UUID]models.Budget
	goals        map[uuid.UUID]models.Goal
	transactions []models.Transaction
	alerts       []models.Alert
	claims       map[string]*time.Time // nil = lifetime claim
	prefs        map[uuid.UUID]models.NotificationPreference
	ruleFailures map[uuid.UUID]error
}

func NewMemory() *Memory {
	return &Memory{
		rules:        make(map[uuid.UUID]models.RecurringRule),
		budgets:      make(map[uuid.UUID]models.Budget),
		goals:        make(map[uuid.UUID]models.Goal),
		claims:       make(map[string]*time.Time),
		prefs:        make(map[uuid.UUID]models.NotificationPreference),
		ruleFailures: make(map[uuid.UUID]error),
	}
}

// Seeding and inspection.

func (m *Memory) PutRule(r models.RecurringRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = r
}

func (m *Memory) Rule(id uuid.UUID) (models.RecurringRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	return r, ok
}

func (m *Memory) PutBudget(b models.Budget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[b.ID] = b
}

func (m *Memory) PutGoal(g models.Goal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[g.ID] = g
}

func (m *Memory) PutTransaction(tx models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, tx)
}

func (m *Memory) PutPreference(p models.NotificationPreference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.OwnerID] = p
}

func (m *Memory) Preference(ownerID uuid.UUID) (models.NotificationPreference, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prefs[ownerID]
	return p, ok
}

func (m *Memory) Transactions() []models.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Transaction(nil), m.transactions...)
}

func (m *Memory) Alerts() []models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Alert(nil), m.alerts...)
}

func (m *Memory) MarkAlertRead(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].IsRead = true
		}
	}
}

// FailRule makes every unit of work touching the rule fail with err.
// A nil err clears the failure.
func (m *Memory) FailRule(id uuid.UUID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.ruleFailures, id)
		return
	}
	m.ruleFailures[id] = err
}

// Recurring rules.

func (m *Memory) ListActiveRecurringRulesDueBy(ctx context.Context, day time.Time) ([]models.RecurringRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []models.RecurringRule
	for _, r := range m.rules {
		if r.IsDue(day) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextDueDate.Equal(due[j].NextDueDate) {
			return due[i].NextDueDate.Before(due[j].NextDueDate)
		}
		return due[i].ID.String() < due[j].ID.String()
	})
	return due, nil
}

// InUnit holds the store lock for the duration of fn; fn must only use u.
func (m *Memory) InUnit(ctx context.Context, fn func(ctx context.Context, u Unit) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := &memoryUnit{m: m, advanced: make(map[uuid.UUID]models.RuleAdvance)}
	if err := fn(ctx, u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, adv := range u.advanced {
		r := m.rules[id]
		r.NextDueDate = adv.NextDue
		processed := adv.ProcessedOn
		r.LastProcessedDate = &processed
		m.rules[id] = r
	}
	m.transactions = append(m.transactions, u.inserted...)
	return nil
}

type memoryUnit struct {
	m        *Memory
	advanced map[uuid.UUID]models.RuleAdvance
	inserted []models.Transaction
}

func (u *memoryUnit) AdvanceRecurringRule(ctx context.Context, adv models.RuleAdvance) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := u.m.ruleFailures[adv.RuleID]; err != nil {
		return false, err
	}
	if _, done := u.advanced[adv.RuleID]; done {
		return false, nil
	}
	r, ok := u.m.rules[adv.RuleID]
	if !ok || !r.IsActive || !r.NextDueDate.Equal(adv.ExpectedNextDue) || r.ProcessedOn(adv.ProcessedOn) {
		return false, nil
	}
	u.advanced[adv.RuleID] = adv
	return true, nil
}

func (u *memoryUnit) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx.RecurringRuleID != nil {
		if err := u.m.ruleFailures[*tx.RecurringRuleID]; err != nil {
			return err
		}
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	u.inserted = append(u.inserted, *tx)
	return nil
}

// Budgets.

func (m *Memory) ListBudgetOwners(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[uuid.UUID]bool)
	for _, b := range m.budgets {
		seen[b.OwnerID] = true
	}
	return sortedIDs(seen), nil
}

func (m *Memory) ListBudgetsForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Budget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Budget
	for _, b := range m.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *Memory) SumExpenseTransactions(ctx context.Context, ownerID uuid.UUID, categoryID *uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero
	for _, tx := range m.transactions {
		if tx.OwnerID != ownerID || !tx.IsExpense() {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		if categoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *categoryID) {
			continue
		}
		total = total.Add(tx.Amount.Abs())
	}
	return total, nil
}

// Goals.

func (m *Memory) ListGoalOwners(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[uuid.UUID]bool)
	for _, g := range m.goals {
		seen[g.OwnerID] = true
	}
	return sortedIDs(seen), nil
}

func (m *Memory) ListGoalsForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Goal
	for _, g := range m.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// Alerts.

func (m *Memory) FindRecentAlert(ctx context.Context, ownerID uuid.UUID, typ models.AlertType, sourceID uuid.UUID, since time.Time) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.Alert
	for i := range m.alerts {
		a := m.alerts[i]
		if a.OwnerID != ownerID || a.Type != typ || a.Metadata.SourceID() != sourceID || !a.CreatedAt.After(since) {
			continue
		}
		if found == nil || a.CreatedAt.After(found.CreatedAt) {
			found = &a
		}
	}
	return found, nil
}

func (m *Memory) FindAlertByMilestone(ctx context.Context, goalID uuid.UUID, milestone int) (*models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.milestoneAlert(goalID, milestone), nil
}

func (m *Memory) milestoneAlert(goalID uuid.UUID, milestone int) *models.Alert {
	for i := range m.alerts {
		a := m.alerts[i]
		if a.Type == models.AlertGoalMilestone && a.Metadata.GoalID != nil && *a.Metadata.GoalID == goalID && a.Metadata.Milestone == milestone {
			return &a
		}
	}
	return nil
}

func (m *Memory) InsertAlertIfAbsent(ctx context.Context, alert *models.Alert, key models.DedupKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if key.Value == "" {
		return false, fmt.Errorf("empty dedup key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	if expires, held := m.claims[key.Value]; held && (expires == nil || expires.After(alert.CreatedAt)) {
		return false, nil
	}
	if alert.Type == models.AlertGoalMilestone && alert.Metadata.GoalID != nil &&
		m.milestoneAlert(*alert.Metadata.GoalID, alert.Metadata.Milestone) != nil {
		return false, nil
	}

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	m.claims[key.Value] = key.ExpiresAt(alert.CreatedAt)
	m.alerts = append(m.alerts, *alert)
	return true, nil
}

func (m *Memory) PurgeAlerts(ctx context.Context, readBefore, now time.Time) (PurgeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res PurgeResult
	kept := m.alerts[:0]
	for _, a := range m.alerts {
		if a.IsRead && a.CreatedAt.Before(readBefore) {
			res.Alerts++
			continue
		}
		kept = append(kept, a)
	}
	m.alerts = kept

	for k, expires := range m.claims {
		if expires != nil && !expires.After(now) {
			delete(m.claims, k)
			res.Claims++
		}
	}
	return res, nil
}

// Digest.

func (m *Memory) ListDigestRecipients(ctx context.Context) ([]models.NotificationPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.NotificationPreference
	for _, p := range m.prefs {
		if p.DigestEnabled {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OwnerID.String() < out[j].OwnerID.String() })
	return out, nil
}

func (m *Memory) ListUnreadAlertsSince(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Alert
	for _, a := range m.alerts {
		if a.OwnerID == ownerID && !a.IsRead && a.CreatedAt.After(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkDigestSent(ctx context.Context, ownerID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[ownerID]
	if !ok {
		return fmt.Errorf("no notification preference for %s", ownerID)
	}
	p.LastDigestAt = &at
	m.prefs[ownerID] = p
	return nil
}

func sortedIDs(set map[uuid.UUID]bool) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
