// Package jobs implements the scheduled job bodies.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/sync/errgroup"

	"github.com/hray3182/tincan/internal/ai"
	"github.com/hray3182/tincan/internal/dedup"
	"github.com/hray3182/tincan/internal/effects"
	"github.com/hray3182/tincan/internal/evaluator"
	"github.com/hray3182/tincan/internal/logging"
	"github.com/hray3182/tincan/internal/metrics"
	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/notify"
	"github.com/hray3182/tincan/internal/period"
	"github.com/hray3182/tincan/internal/store"
)

const (
	ProcessRecurring = "process-recurring-transactions"
	CheckGoals       = "check-goal-milestones"
	BudgetAlerts     = "generate-budget-alerts"
	SendDigest       = "send-notification-digest"
	CleanupAlerts    = "cleanup-alerts"

	// budgetCheck labels on-demand rechecks outside the scheduler.
	budgetCheck = "budget-check"
)

// Summarizer produces an optional digest summary.
type Summarizer interface {
	SummarizeAlerts(ctx context.Context, alerts []models.Alert) (*ai.Summary, error)
}

type Deps struct {
	Store      store.Store
	Metrics    *metrics.Metrics
	Periods    period.Calculator
	Notifier   notify.Notifier // nil disables digests
	Summarizer Summarizer      // optional
	Now        func() time.Time
	Workers    int
	Retention  time.Duration
}

type Runner struct {
	store      store.Store
	committer  *effects.Committer
	metrics    *metrics.Metrics
	periods    period.Calculator
	notifier   notify.Notifier
	summarizer Summarizer
	now        func() time.Time
	workers    int
	retention  time.Duration
}

func NewRunner(d Deps) *Runner {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Workers < 1 {
		d.Workers = 1
	}
	return &Runner{
		store:      d.Store,
		committer:  effects.NewCommitter(d.Store, dedup.NewGate(d.Store, d.Now)),
		metrics:    d.Metrics,
		periods:    d.Periods,
		notifier:   d.Notifier,
		summarizer: d.Summarizer,
		now:        d.Now,
		workers:    d.Workers,
		retention:  d.Retention,
	}
}

// forEachOwner runs fn for every owner on at most r.workers goroutines.
// Errors are logged per owner and never stop the others.
func (r *Runner) forEachOwner(ctx context.Context, job string, owners []uuid.UUID, fn func(ctx context.Context, owner uuid.UUID) error) error {
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, owner := range owners {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := fn(ctx, owner); err != nil {
				r.entityError(job, err, logx.Field("owner_id", owner.String()))
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (r *Runner) entityError(job string, err error, fields ...logx.LogField) {
	kind := errorKind(err)
	r.metrics.EntityErrors.WithLabelValues(job, kind).Inc()

	fields = append(fields, logx.Field("job", job), logx.Field("kind", kind), logging.Err(err))
	if kind == "validation" {
		logging.Warnw("entity skipped", fields...)
		return
	}
	logx.Errorw("entity failed", fields...)
}

func errorKind(err error) string {
	var verr *evaluator.ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation"
	case store.IsTimeout(err):
		return "timeout"
	case store.IsTransient(err):
		return "transient"
	}
	return "internal"
}

// commitAlert sends an intent through the gate and records the decision.
func (r *Runner) commitAlert(ctx context.Context, alert models.Alert) (bool, error) {
	d, err := r.committer.Alert(ctx, alert)
	if err != nil {
		return false, err
	}
	if d != dedup.Inserted {
		r.metrics.AlertsSuppressed.WithLabelValues(string(alert.Type)).Inc()
		logx.Debugw("alert suppressed",
			logx.Field("alert_type", string(alert.Type)),
			logx.Field("owner_id", alert.OwnerID.String()),
			logx.Field("decision", string(d)))
		return false, nil
	}
	r.metrics.AlertsCreated.WithLabelValues(string(alert.Type)).Inc()
	logx.Infow("alert created",
		logx.Field("alert_type", string(alert.Type)),
		logx.Field("owner_id", alert.OwnerID.String()),
		logx.Field("source_id", alert.Metadata.SourceID().String()))
	return true, nil
}
