// Package httpapi exposes job introspection, manual triggers and the
// on-demand budget recheck.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/hray3182/tincan/internal/jobs"
	"github.com/hray3182/tincan/internal/logging"
	"github.com/hray3182/tincan/internal/scheduler"
)

type JobRegistry interface {
	Status() []scheduler.JobStatus
	RunNow(name string) (bool, error)
}

type BudgetChecker interface {
	CheckBudgetsForOwner(ctx context.Context, owner uuid.UUID) (*jobs.BudgetReport, error)
}

type Server struct {
	jobs    JobRegistry
	budgets BudgetChecker
	mux     *http.ServeMux
}

func New(registry JobRegistry, budgets BudgetChecker, gatherer prometheus.Gatherer) *Server {
	s := &Server{jobs: registry, budgets: budgets, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", s.health)
	s.mux.HandleFunc("GET /jobs", s.listJobs)
	s.mux.HandleFunc("POST /jobs/{name}/run", s.runJob)
	s.mux.HandleFunc("POST /owners/{ownerID}/budget-check", s.checkBudgets)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.Status())
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	started, err := s.jobs.RunNow(name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeError(w, http.StatusNotFound, "unknown job "+name)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	case !started:
		writeError(w, http.StatusConflict, "job "+name+" is running or the scheduler is stopping")
	default:
		logx.Infow("job triggered manually", logx.Field("job", name))
		writeJSON(w, http.StatusAccepted, map[string]string{"job": name, "status": "started"})
	}
}

func (s *Server) checkBudgets(w http.ResponseWriter, r *http.Request) {
	owner, err := uuid.Parse(r.PathValue("ownerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner id")
		return
	}
	report, err := s.budgets.CheckBudgetsForOwner(r.Context(), owner)
	if err != nil {
		logx.Errorw("budget check failed", logx.Field("owner_id", owner.String()), logging.Err(err))
		writeError(w, http.StatusServiceUnavailable, "budget check failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Errorw("write response", logging.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
