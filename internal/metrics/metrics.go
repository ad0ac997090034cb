// Package metrics holds the Prometheus collectors of the scheduler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tincan"

type Metrics struct {
	JobRuns           *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec
	JobSkips          *prometheus.CounterVec
	AlertsCreated     *prometheus.CounterVec
	AlertsSuppressed  *prometheus.CounterVec
	RulesMaterialized prometheus.Counter
	EntityErrors      *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Job invocations by outcome.",
		}, []string{"job", "outcome"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"job"}),
		JobSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_skips_total",
			Help:      "Triggers skipped because the previous run was still in flight.",
		}, []string{"job"}),
		AlertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Alerts inserted.",
		}, []string{"type"}),
		AlertsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Alert intents dropped by deduplication.",
		}, []string{"type"}),
		RulesMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_materialized_total",
			Help:      "Transactions generated from recurring rules.",
		}),
		EntityErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_errors_total",
			Help:      "Per-entity failures by job and error kind.",
		}, []string{"job", "kind"}),
	}
	reg.MustRegister(
		m.JobRuns,
		m.JobDuration,
		m.JobSkips,
		m.AlertsCreated,
		m.AlertsSuppressed,
		m.RulesMaterialized,
		m.EntityErrors,
	)
	return m
}

func (m *Metrics) JobFinished(name string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.JobRuns.WithLabelValues(name, outcome).Inc()
	m.JobDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (m *Metrics) JobSkipped(name string) {
	m.JobSkips.WithLabelValues(name).Inc()
}
