package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/rickgao/gecko-volumes/internal/metrics"
)

// Job is a named unit of periodic work. Exactly one of Every or At is set.
type Job struct {
	Name  string
	Every time.Duration // run every interval, first run one interval after Start
	At    string        // run daily at HH:MM in the scheduler's location
	Run   func(ctx context.Context) error
}

func (j Job) validate() error {
	if j.Name == "" {
		return errors.New("job name is required")
	}
	if j.Run == nil {
		return fmt.Errorf("job %s: run func is required", j.Name)
	}
	if (j.Every > 0) == (j.At != "") {
		return fmt.Errorf("job %s: exactly one of every or at must be set", j.Name)
	}
	return nil
}

// Scheduler owns the job set and its lifecycle.
type Scheduler struct {
	cron   *gocron.Scheduler
	logger *slog.Logger

	mu      sync.Mutex
	jobs    []Job
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New creates a scheduler that evaluates daily times in loc.
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	cron := gocron.NewScheduler(loc)
	cron.SetMaxConcurrentJobs(1, gocron.WaitMode)
	cron.SingletonModeAll()
	cron.WaitForScheduleAll()
	cron.TagsUnique()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. Jobs added after Start are scheduled immediately.
func (s *Scheduler) Add(job Job) error {
	if err := job.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var sched *gocron.Scheduler
	if job.At != "" {
		sched = s.cron.Every(1).Day().At(job.At)
	} else {
		sched = s.cron.Every(job.Every)
	}
	if _, err := sched.Tag(job.Name).Do(func() { s.run(job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", job.Name, err)
	}

	s.jobs = append(s.jobs, job)
	s.logger.Info("job scheduled", "job", job.Name, "every", job.Every, "at", job.At)
	return nil
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Start begins running jobs in the background. The context passed to each
// job is cancelled when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.cancel()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.StartAsync()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// run executes one job invocation. Errors and panics end the invocation only.
func (s *Scheduler) run(job Job) {
	runID := uuid.NewString()
	logger := s.logger.With("job", job.Name, "run_id", runID)
	start := time.Now()
	status := "success"

	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			logger.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
		}
		elapsed := time.Since(start)
		metrics.JobRuns.WithLabelValues(job.Name, status).Inc()
		metrics.JobDuration.WithLabelValues(job.Name).Observe(elapsed.Seconds())
		logger.Debug("job finished", "status", status, "duration", elapsed)
	}()

	ctx := s.jobContext()
	if ctx.Err() != nil {
		status = "cancelled"
		return
	}

	logger.Debug("job started")
	if err := job.Run(ctx); err != nil {
		status = "error"
		if errors.Is(err, context.Canceled) {
			status = "cancelled"
		}
		logger.Error("job failed", "err", err)
	}
}
