package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/tincan/internal/jobs"
	"github.com/hray3182/tincan/internal/metrics"
	"github.com/hray3182/tincan/internal/models"
	"github.com/hray3182/tincan/internal/period"
	"github.com/hray3182/tincan/internal/scheduler"
	"github.com/hray3182/tincan/internal/store"
)

type fixture struct {
	srv     *httptest.Server
	sched   *scheduler.Scheduler
	mem     *store.Memory
	release chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	mem := store.NewMemory()
	runner := jobs.NewRunner(jobs.Deps{
		Store:   mem,
		Metrics: m,
		Periods: period.Default,
		Now:     func() time.Time { return time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC) },
		Workers: 1,
	})

	release := make(chan struct{})
	sched := scheduler.New(scheduler.WithObserver(m))
	require.NoError(t, sched.Register(scheduler.Job{
		Name:    "slow",
		Trigger: scheduler.Every(time.Hour),
		Enabled: true,
		Handler: func(ctx context.Context) error {
			<-release
			return nil
		},
	}))

	srv := httptest.NewServer(New(sched, runner, reg))
	t.Cleanup(func() {
		srv.Close()
		select {
		case <-release:
		default:
			close(release)
		}
	})
	return &fixture{srv: srv, sched: sched, mem: mem, release: release}
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "slow", got[0]["name"])
	assert.Equal(t, false, got[0]["running"])
	assert.NotNil(t, got[0]["next_fire_time"])
}

func TestRunJob(t *testing.T) {
	f := newFixture(t)
	post := func(path string) int {
		resp, err := http.Post(f.srv.URL+path, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusAccepted, post("/jobs/slow/run"))
	assert.Equal(t, http.StatusConflict, post("/jobs/slow/run"))
	assert.Equal(t, http.StatusNotFound, post("/jobs/missing/run"))

	close(f.release)
	require.Eventually(t, func() bool {
		st, _ := f.sched.Lookup("slow")
		return !st.Running
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, http.StatusAccepted, post("/jobs/slow/run"))
}

func TestBudgetCheck(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	f.mem.PutBudget(models.Budget{ID: uuid.New(), OwnerID: owner, Name: "Dining", Amount: decimal.NewFromInt(100), Period: models.PeriodMonthly})
	f.mem.PutTransaction(models.Transaction{OwnerID: owner, Amount: decimal.NewFromInt(-90), Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)})

	resp, err := http.Post(f.srv.URL+"/owners/"+owner.String()+"/budget-check", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report struct {
		Budgets []struct {
			Status       string `json:"status"`
			AlertCreated bool   `json:"alert_created"`
			Percentage   string `json:"percentage"`
		} `json:"budgets"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.Budgets, 1)
	assert.Equal(t, "near_limit", report.Budgets[0].Status)
	assert.True(t, report.Budgets[0].AlertCreated)
	assert.Equal(t, "90", report.Budgets[0].Percentage)

	resp2, err := http.Post(f.srv.URL+"/owners/not-a-uuid/budget-check", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

type failingChecker struct{}

func (failingChecker) CheckBudgetsForOwner(context.Context, uuid.UUID) (*jobs.BudgetReport, error) {
	return nil, errors.New("store down")
}

func TestBudgetCheckStoreFailure(t *testing.T) {
	srv := httptest.NewServer(New(scheduler.New(), failingChecker{}, prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/owners/"+uuid.New().String()+"/budget-check", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsAndHealth(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = f.sched.RunNow("slow")
	require.NoError(t, err)
	close(f.release)
	require.Eventually(t, func() bool {
		st, _ := f.sched.Lookup("slow")
		return st.Runs == 1
	}, time.Second, 5*time.Millisecond)

	resp, err = http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body := new(strings.Builder)
	_, err = io.Copy(body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `tincan_job_runs_total{job="slow",outcome="success"} 1`)
}
