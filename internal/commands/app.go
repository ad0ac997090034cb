package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/hray3182/tincan/internal/ai"
	"github.com/hray3182/tincan/internal/config"
	"github.com/hray3182/tincan/internal/database"
	"github.com/hray3182/tincan/internal/jobs"
	"github.com/hray3182/tincan/internal/logging"
	"github.com/hray3182/tincan/internal/metrics"
	"github.com/hray3182/tincan/internal/notify"
	"github.com/hray3182/tincan/internal/period"
	"github.com/hray3182/tincan/internal/repository"
	"github.com/hray3182/tincan/internal/scheduler"
	"github.com/hray3182/tincan/internal/store"
)

// app is the wired process: store, runner and a scheduler holding every job.
type app struct {
	cfg      *config.Config
	db       *database.DB
	registry *prometheus.Registry
	runner   *jobs.Runner
	sched    *scheduler.Scheduler
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogEncoding); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}

	var backend store.Store
	if cfg.DatabaseURI == "" {
		logging.Warnw("DATABASE_URI not set, using in-memory store")
		backend = store.NewMemory()
	} else {
		db, err := database.New(ctx, cfg.DatabaseURI)
		if err != nil {
			return nil, err
		}
		a.db = db
		logx.Info("connected to database")

		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		backend = repository.NewStore(db)
	}

	var notifier notify.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = tg
	} else {
		logx.Info("TELEGRAM_TOKEN not set, notification digests disabled")
	}

	var summarizer jobs.Summarizer
	if cfg.AIAPIKey != "" {
		summarizer = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		logx.Infow("AI summaries enabled", logx.Field("model", cfg.AIModel))
	}

	m := metrics.New(a.registry)
	a.runner = jobs.NewRunner(jobs.Deps{
		Store:      store.WithTimeout(backend, cfg.StoreTimeout),
		Metrics:    m,
		Periods:    period.Calculator{WeekStart: cfg.WeekStart},
		Notifier:   notifier,
		Summarizer: summarizer,
		Workers:    cfg.Workers,
		Retention:  cfg.AlertRetention,
	})

	a.sched = scheduler.New(scheduler.WithObserver(m))
	if err := a.runner.Register(a.sched, cfg.Jobs); err != nil {
		a.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
