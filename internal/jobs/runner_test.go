package jobs

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/tincan/internal/ai"
	"github.com/hray3182/tincan/internal/metrics"
	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/period"
	"github.com/hray3182/tincan/internal/store"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	mem     *store.Memory
	clock   *clock
	metrics *metrics.Metrics
	runner  *Runner
}

func newFixture(t *testing.T, start time.Time, opts ...func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		mem:     store.NewMemory(),
		clock:   &clock{t: start},
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	d := Deps{
		Store:     store.WithTimeout(f.mem, time.Second),
		Metrics:   f.metrics,
		Periods:   period.Default,
		Now:       f.clock.Now,
		Workers:   2,
		Retention: 90 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&d)
	}
	f.runner = NewRunner(d)
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProcessRecurringIsIdempotent(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 31, 6, 0, 0, 0, time.UTC))
	rule := models.RecurringRule{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		AccountID:   uuid.New(),
		Amount:      decimal.NewFromInt(-1500),
		Description: "Rent",
		Frequency:   models.FrequencyMonthly,
		NextDueDate: day(2024, 1, 31),
		IsActive:    true,
	}
	f.mem.PutRule(rule)

	require.NoError(t, f.runner.ProcessRecurringTransactions(context.Background()))
	require.NoError(t, f.runner.ProcessRecurringTransactions(context.Background()))

	txs := f.mem.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, day(2024, 1, 31), txs[0].Date)
	assert.True(t, txs[0].AutoGenerated)

	got, _ := f.mem.Rule(rule.ID)
	assert.Equal(t, day(2024, 2, 29), got.NextDueDate)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RulesMaterialized))
}

func TestProcessRecurringIsolatesFailures(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC))
	broken := models.RecurringRule{ID: uuid.New(), Frequency: models.FrequencyWeekly, NextDueDate: day(2024, 3, 14), IsActive: true}
	healthy := models.RecurringRule{ID: uuid.New(), Frequency: models.FrequencyDaily, NextDueDate: day(2024, 3, 15), IsActive: true}
	future := models.RecurringRule{ID: uuid.New(), Frequency: models.FrequencyDaily, NextDueDate: day(2024, 3, 16), IsActive: true}
	f.mem.PutRule(broken)
	f.mem.PutRule(healthy)
	f.mem.PutRule(future)
	f.mem.FailRule(broken.ID, &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET})

	require.NoError(t, f.runner.ProcessRecurringTransactions(context.Background()))

	txs := f.mem.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, healthy.ID, *txs[0].RecurringRuleID)

	got, _ := f.mem.Rule(broken.ID)
	assert.Equal(t, day(2024, 3, 14), got.NextDueDate)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EntityErrors.WithLabelValues(ProcessRecurring, "transient")))

	// The rule is retried on the next tick once the store recovers.
	f.mem.FailRule(broken.ID, nil)
	require.NoError(t, f.runner.ProcessRecurringTransactions(context.Background()))
	got, _ = f.mem.Rule(broken.ID)
	assert.Equal(t, day(2024, 3, 21), got.NextDueDate)
	assert.Len(t, f.mem.Transactions(), 2)
}

func TestProcessRecurringReportsPermanentFailures(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC))
	rule := models.RecurringRule{ID: uuid.New(), Frequency: models.FrequencyMonthly, NextDueDate: day(2024, 3, 15), IsActive: true}
	f.mem.PutRule(rule)
	f.mem.FailRule(rule.ID, &pgconn.PgError{Code: "23505", ConstraintName: "idx_transactions_recurring_date"})

	require.NoError(t, f.runner.ProcessRecurringTransactions(context.Background()))
	assert.Empty(t, f.mem.Transactions())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EntityErrors.WithLabelValues(ProcessRecurring, "internal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.EntityErrors.WithLabelValues(ProcessRecurring, "transient")))
}

func TestProcessRecurringUnknownFrequency(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC))
	rule := models.RecurringRule{ID: uuid.New(), Frequency: "fortnightly", NextDueDate: day(2024, 3, 15), IsActive: true}
	f.mem.PutRule(rule)

	require.NoError(t, f.runner.ProcessRecurringTransactions(context.Background()))
	got, _ := f.mem.Rule(rule.ID)
	assert.Equal(t, day(2024, 4, 15), got.NextDueDate)
}

func seedOverBudget(f *fixture) (owner uuid.UUID, budget models.Budget) {
	owner = uuid.New()
	budget = models.Budget{ID: uuid.New(), OwnerID: owner, Name: "Dining", Amount: decimal.NewFromInt(100), Period: models.PeriodMonthly}
	f.mem.PutBudget(budget)
	f.mem.PutTransaction(models.Transaction{ID: uuid.New(), OwnerID: owner, Amount: decimal.RequireFromString("-100.01"), Date: day(2024, 3, 10)})
	return owner, budget
}

func alertsOfType(alerts []models.Alert, typ models.AlertType) []models.Alert {
	var out []models.Alert
	for _, a := range alerts {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestGenerateBudgetAlertsDedup(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC))
	seedOverBudget(f)

	require.NoError(t, f.runner.GenerateBudgetAlerts(context.Background()))
	f.clock.Advance(time.Hour)
	require.NoError(t, f.runner.GenerateBudgetAlerts(context.Background()))
	assert.Len(t, alertsOfType(f.mem.Alerts(), models.AlertBudgetExceeded), 1)

	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.runner.GenerateBudgetAlerts(context.Background()))
	assert.Len(t, alertsOfType(f.mem.Alerts(), models.AlertBudgetExceeded), 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.AlertsCreated.WithLabelValues(string(models.AlertBudgetExceeded))))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AlertsSuppressed.WithLabelValues(string(models.AlertBudgetExceeded))))
}

func TestScheduledAndManualBudgetChecksRace(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC))
	owner, _ := seedOverBudget(f)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.runner.GenerateBudgetAlerts(context.Background()))
		}()
		go func() {
			defer wg.Done()
			_, err := f.runner.CheckBudgetsForOwner(context.Background(), owner)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.mem.Alerts(), 1)
}

func TestCheckBudgetsForOwnerReport(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC))
	owner, budget := seedOverBudget(f)
	invalid := models.Budget{ID: uuid.New(), OwnerID: owner, Name: "Broken", Amount: decimal.Zero, Period: models.PeriodWeekly}
	f.mem.PutBudget(invalid)

	report, err := f.runner.CheckBudgetsForOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, report.Budgets, 2)

	byID := map[uuid.UUID]BudgetReportItem{}
	for _, item := range report.Budgets {
		byID[item.BudgetID] = item
	}

	ok := byID[budget.ID]
	assert.Empty(t, ok.Error)
	assert.True(t, ok.AlertCreated)
	assert.Equal(t, "over_budget", string(ok.Status))
	assert.Equal(t, "100.01", ok.Spent.String())
	assert.Equal(t, day(2024, 3, 1), ok.Window.Start)
	assert.Equal(t, day(2024, 3, 31), ok.Window.End)

	bad := byID[invalid.ID]
	assert.NotEmpty(t, bad.Error)
	assert.Equal(t, "Broken", bad.Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EntityErrors.WithLabelValues(budgetCheck, "validation")))

	report, err = f.runner.CheckBudgetsForOwner(context.Background(), owner)
	require.NoError(t, err)
	for _, item := range report.Budgets {
		assert.False(t, item.AlertCreated)
	}
}

func TestGoalMilestonesEndToEnd(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC))
	goal := models.Goal{ID: uuid.New(), OwnerID: uuid.New(), Name: "Trip", TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.Zero}

	tick := func(current int64) []int {
		goal.CurrentAmount = decimal.NewFromInt(current)
		f.mem.PutGoal(goal)
		require.NoError(t, f.runner.CheckGoalMilestones(context.Background()))
		f.clock.Advance(24 * time.Hour)

		var got []int
		for _, a := range f.mem.Alerts() {
			got = append(got, a.Metadata.Milestone)
		}
		return got
	}

	assert.Empty(t, tick(0))
	assert.Equal(t, []int{25}, tick(260))
	assert.Equal(t, []int{25, 50}, tick(510))
	assert.Equal(t, []int{25, 50}, tick(490))
	assert.Equal(t, []int{25, 50}, tick(510))
	assert.Equal(t, []int{25, 50, 75, 100}, tick(1000))
	assert.Equal(t, []int{25, 50, 75, 100}, tick(1000))

	completion := f.mem.Alerts()[3]
	assert.Equal(t, models.PriorityHigh, completion.Priority)
}

func TestGoalDeadlineAlertsRepeatDaily(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC))
	target := day(2024, 3, 20)
	f.mem.PutGoal(models.Goal{ID: uuid.New(), OwnerID: uuid.New(), Name: "Car", TargetAmount: decimal.NewFromInt(100), CurrentAmount: decimal.NewFromInt(10), TargetDate: &target})

	require.NoError(t, f.runner.CheckGoalMilestones(context.Background()))
	f.clock.Advance(time.Hour)
	require.NoError(t, f.runner.CheckGoalMilestones(context.Background()))
	f.clock.Advance(24 * time.Hour)
	require.NoError(t, f.runner.CheckGoalMilestones(context.Background()))

	deadlines := alertsOfType(f.mem.Alerts(), models.AlertGoalDeadline)
	require.Len(t, deadlines, 2)
	assert.Equal(t, 5, deadlines[0].Metadata.DaysRemaining)
	assert.Equal(t, 4, deadlines[1].Metadata.DaysRemaining)
}

func TestGoalNonPositiveTargetStaysInEvaluation(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC))
	owner := uuid.New()
	soon := day(2024, 3, 18)
	zero := models.Goal{ID: uuid.New(), OwnerID: owner, Name: "Zero", TargetAmount: decimal.Zero, CurrentAmount: decimal.NewFromInt(5), TargetDate: &soon}
	f.mem.PutGoal(zero)
	f.mem.PutGoal(models.Goal{ID: uuid.New(), OwnerID: owner, Name: "Half", TargetAmount: decimal.NewFromInt(100), CurrentAmount: decimal.NewFromInt(50)})

	require.NoError(t, f.runner.CheckGoalMilestones(context.Background()))

	var zeroAlerts []models.AlertType
	for _, a := range f.mem.Alerts() {
		if a.Metadata.GoalID != nil && *a.Metadata.GoalID == zero.ID {
			zeroAlerts = append(zeroAlerts, a.Type)
		}
	}
	assert.Equal(t, []models.AlertType{models.AlertGoalDeadline}, zeroAlerts)
	assert.Len(t, f.mem.Alerts(), 3)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.EntityErrors.WithLabelValues(CheckGoals, "validation")))
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, chatID int64, markdown string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: markdown})
	return nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (s fakeSummarizer) SummarizeAlerts(context.Context, []models.Alert) (*ai.Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Summary{Summary: s.summary}, nil
}

func TestSendNotificationDigests(t *testing.T) {
	notifier := &fakeNotifier{}
	f := newFixture(t, time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC), func(d *Deps) {
		d.Notifier = notifier
		d.Summarizer = fakeSummarizer{summary: "Dining is over budget."}
	})
	owner, _ := seedOverBudget(f)
	f.mem.PutPreference(models.NotificationPreference{OwnerID: owner, TelegramChatID: 77, DigestEnabled: true, DigestTime: "09:00", Timezone: "UTC"})
	require.NoError(t, f.runner.GenerateBudgetAlerts(context.Background()))

	require.NoError(t, f.runner.SendNotificationDigests(context.Background()))
	assert.Empty(t, notifier.sent, "before digest time")

	f.clock.Advance(90 * time.Minute)
	require.NoError(t, f.runner.SendNotificationDigests(context.Background()))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(77), notifier.sent[0].chatID)
	assert.Contains(t, notifier.sent[0].text, "Dining is over budget.")
	assert.Contains(t, notifier.sent[0].text, `Budget "Dining" exceeded`)

	pref, _ := f.mem.Preference(owner)
	require.NotNil(t, pref.LastDigestAt)

	f.clock.Advance(15 * time.Minute)
	require.NoError(t, f.runner.SendNotificationDigests(context.Background()))
	assert.Len(t, notifier.sent, 1)
}

func TestSendNotificationDigestsSummaryFallback(t *testing.T) {
	notifier := &fakeNotifier{}
	f := newFixture(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), func(d *Deps) {
		d.Notifier = notifier
		d.Summarizer = fakeSummarizer{err: errors.New("rate limited")}
	})
	owner, _ := seedOverBudget(f)
	f.mem.PutPreference(models.NotificationPreference{OwnerID: owner, TelegramChatID: 1, DigestEnabled: true, DigestTime: "09:00", Timezone: "UTC"})
	require.NoError(t, f.runner.GenerateBudgetAlerts(context.Background()))

	require.NoError(t, f.runner.SendNotificationDigests(context.Background()))
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].text, "1 new alert")
}

func TestSendNotificationDigestsNothingToSend(t *testing.T) {
	notifier := &fakeNotifier{}
	f := newFixture(t, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC), func(d *Deps) { d.Notifier = notifier })
	owner := uuid.New()
	f.mem.PutPreference(models.NotificationPreference{OwnerID: owner, TelegramChatID: 1, DigestEnabled: true, DigestTime: "09:00", Timezone: "UTC"})

	require.NoError(t, f.runner.SendNotificationDigests(context.Background()))
	assert.Empty(t, notifier.sent)
	pref, _ := f.mem.Preference(owner)
	assert.Nil(t, pref.LastDigestAt)
}

func TestSendNotificationDigestsWithoutNotifier(t *testing.T) {
	f := newFixture(t, time.Now())
	assert.ErrorIs(t, f.runner.SendNotificationDigests(context.Background()), errNoNotifier)
}

func TestCleanupAlerts(t *testing.T) {
	f := newFixture(t, time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC))
	readOwner, _ := seedOverBudget(f)
	unreadOwner, _ := seedOverBudget(f)
	require.NoError(t, f.runner.GenerateBudgetAlerts(context.Background()))
	alerts := f.mem.Alerts()
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		if a.OwnerID == readOwner {
			f.mem.MarkAlertRead(a.ID)
		}
	}

	f.clock.Advance(100 * 24 * time.Hour)
	require.NoError(t, f.runner.CleanupAlerts(context.Background()))

	remaining := f.mem.Alerts()
	require.Len(t, remaining, 1)
	assert.Equal(t, unreadOwner, remaining[0].OwnerID)
}
