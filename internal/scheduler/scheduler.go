// Package scheduler runs named jobs on independent triggers. A job never
// runs concurrently with itself.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/hray3182/tincan/internal/logging"
)

type Handler func(ctx context.Context) error

type Job struct {
	Name    string
	Trigger Trigger
	Enabled bool
	Handler Handler
}

// Observer receives run outcomes, typically metrics.
type Observer interface {
	JobFinished(name string, d time.Duration, err error)
	JobSkipped(name string)
}

type JobStatus struct {
	Name           string     `json:"name"`
	Enabled        bool       `json:"enabled"`
	Trigger        string     `json:"trigger"`
	Running        bool       `json:"running"`
	NextFireTime   *time.Time `json:"next_fire_time"`
	LastStartedAt  *time.Time `json:"last_started_at"`
	LastDurationMs int64      `json:"last_duration_ms"`
	LastError      string     `json:"last_error,omitempty"`
	Runs           int64      `json:"runs"`
	Skipped        int64      `json:"skipped"`
}

type entry struct {
	job     Job
	running atomic.Bool

	mu           sync.Mutex
	next         time.Time
	lastStart    time.Time
	lastDuration time.Duration
	lastErr      error
	runs         int64
	skipped      int64
}

type Scheduler struct {
	now        func() time.Time
	observer   Observer
	cancelWait time.Duration

	mu       sync.Mutex
	jobs     map[string]*entry
	order    []string
	started  bool
	stopping bool

	stopLoops context.CancelFunc
	loops     sync.WaitGroup
	inflight  sync.WaitGroup

	// runCtx outlives the Start context so that shutdown drains runs
	// instead of cancelling them.
	runCtx     context.Context
	cancelRuns context.CancelFunc
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithCancelWait bounds how long Shutdown waits for handlers to return
// after their contexts are cancelled.
func WithCancelWait(d time.Duration) Option {
	return func(s *Scheduler) { s.cancelWait = d }
}

const defaultCancelWait = 5 * time.Second

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		now:        time.Now,
		jobs:       make(map[string]*entry),
		cancelWait: defaultCancelWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runCtx, s.cancelRuns = context.WithCancel(context.Background())
	return s
}

// Register adds a job. It must be called before Start.
func (s *Scheduler) Register(job Job) error {
	switch {
	case job.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidJob)
	case job.Handler == nil:
		return fmt.Errorf("%w: %s has no handler", ErrInvalidJob, job.Name)
	case job.Trigger == nil:
		return fmt.Errorf("%w: %s has no trigger", ErrInvalidJob, job.Name)
	}
	if job.Enabled && job.Trigger.Next(s.now()).IsZero() {
		return fmt.Errorf("%w: %s trigger %q never fires", ErrInvalidJob, job.Name, job.Trigger)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	s.jobs[job.Name] = &entry{job: job}
	s.order = append(s.order, job.Name)
	return nil
}

// Start launches one trigger loop per enabled job. Cancelling ctx stops
// the triggers; in-flight runs continue until Shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	loopCtx, stop := context.WithCancel(ctx)
	s.stopLoops = stop
	for _, name := range s.order {
		e := s.jobs[name]
		if !e.job.Enabled {
			logx.Infow("job disabled", logx.Field("job", name))
			continue
		}
		s.loops.Add(1)
		go s.loop(loopCtx, e)
	}
	logx.Infow("scheduler started", logx.Field("jobs", len(s.order)))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.loops.Done()

	for {
		now := s.now()
		next := e.job.Trigger.Next(now)
		e.setNext(next)
		if next.IsZero() {
			logging.Warnw("job trigger exhausted", logx.Field("job", e.job.Name))
			return
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			e.setNext(time.Time{})
			return
		case <-timer.C:
			s.launch(e)
		}
	}
}

// launch starts a run in the background unless one is already in flight.
func (s *Scheduler) launch(e *entry) bool {
	if s.acquire(e) != nil {
		return false
	}
	go func() {
		defer s.inflight.Done()
		_ = s.run(s.runCtx, e)
	}()
	return true
}

// acquire claims the job's running flag and registers the run with the
// drain group.
func (s *Scheduler) acquire(e *entry) error {
	if !e.running.CompareAndSwap(false, true) {
		e.mu.Lock()
		e.skipped++
		e.mu.Unlock()
		if s.observer != nil {
			s.observer.JobSkipped(e.job.Name)
		}
		logging.Warnw("job still running, trigger skipped", logx.Field("job", e.job.Name))
		return ErrJobRunning
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		e.running.Store(false)
		return ErrStopping
	}
	s.inflight.Add(1)
	return nil
}

func (s *Scheduler) run(ctx context.Context, e *entry) error {
	defer e.running.Store(false)

	name := e.job.Name
	start := s.now()
	e.mu.Lock()
	e.lastStart = start
	e.mu.Unlock()
	logx.Infow("job started", logx.Field("job", name))

	err := invoke(ctx, e.job.Handler)
	d := s.now().Sub(start)

	e.mu.Lock()
	e.lastDuration = d
	e.lastErr = err
	e.runs++
	e.mu.Unlock()
	if s.observer != nil {
		s.observer.JobFinished(name, d, err)
	}

	if err != nil {
		logx.Errorw("job failed", logx.Field("job", name), logx.Field("duration", d.String()), logging.Err(err))
		return err
	}
	logx.Infow("job completed", logx.Field("job", name), logx.Field("duration", d.String()))
	return nil
}

func invoke(ctx context.Context, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logx.Errorw("job panicked", logx.Field("stack", string(debug.Stack())))
		}
	}()
	return h(ctx)
}

// RunNow starts the named job in the background. It reports false when a
// run is already in flight.
func (s *Scheduler) RunNow(name string) (bool, error) {
	e, err := s.entry(name)
	if err != nil {
		return false, err
	}
	return s.launch(e), nil
}

// Run executes the named job synchronously in the caller's goroutine.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	if err := s.acquire(e); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer s.inflight.Done()
	return s.run(ctx, e)
}

func (s *Scheduler) entry(name string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return e, nil
}

// Status returns one record per job in registration order. Before Start the
// next fire time is computed from the trigger.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.order))
	for _, name := range s.order {
		entries = append(entries, s.jobs[name])
	}
	started := s.started
	s.mu.Unlock()

	now := s.now()
	out := make([]JobStatus, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.status(now, started))
	}
	return out
}

// Lookup returns the status of one job.
func (s *Scheduler) Lookup(name string) (JobStatus, error) {
	e, err := s.entry(name)
	if err != nil {
		return JobStatus{}, err
	}
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	return e.status(s.now(), started), nil
}

// Shutdown stops all triggers and waits for in-flight runs. When ctx ends
// first, running handlers are cancelled and Shutdown waits up to the cancel
// wait for them to return before reporting ctx's error.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	stop := s.stopLoops
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.loops.Wait()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	defer s.cancelRuns()
	select {
	case <-done:
		logx.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
	}

	logx.Errorw("scheduler drain timed out, cancelling running jobs", logging.Err(ctx.Err()))
	s.cancelRuns()

	timer := time.NewTimer(s.cancelWait)
	defer timer.Stop()
	select {
	case <-done:
		return fmt.Errorf("drain jobs: %w", ctx.Err())
	case <-timer.C:
		logx.Errorw("jobs still running after cancellation", logx.Field("running", s.runningJobs()))
		return fmt.Errorf("drain jobs: %w: %w", ErrHandlersRunning, ctx.Err())
	}
}

func (s *Scheduler) runningJobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, name := range s.order {
		if s.jobs[name].running.Load() {
			names = append(names, name)
		}
	}
	return names
}

func (e *entry) setNext(t time.Time) {
	e.mu.Lock()
	e.next = t
	e.mu.Unlock()
}

func (e *entry) status(now time.Time, started bool) JobStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := JobStatus{
		Name:           e.job.Name,
		Enabled:        e.job.Enabled,
		Trigger:        e.job.Trigger.String(),
		Running:        e.running.Load(),
		LastDurationMs: e.lastDuration.Milliseconds(),
		Runs:           e.runs,
		Skipped:        e.skipped,
	}
	next := e.next
	if !started && e.job.Enabled {
		next = e.job.Trigger.Next(now)
	}
	if !next.IsZero() {
		st.NextFireTime = &next
	}
	if !e.lastStart.IsZero() {
		t := e.lastStart
		st.LastStartedAt = &t
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st
}
