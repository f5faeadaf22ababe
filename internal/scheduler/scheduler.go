// Package scheduler fires the recurring uptime, audit and digest jobs and
// turns their findings into alerts.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/kiranshivaraju/sitewatch/internal/audit"
	"github.com/kiranshivaraju/sitewatch/internal/notify"
	"github.com/kiranshivaraju/sitewatch/internal/store"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// Job names.
const (
	JobUptime    = "uptime-check"
	JobFullAudit = "full-audit"
	JobDeepScan  = "monthly-deep-scan"
	JobDigest    = "daily-digest"
)

// DefaultScoreDropThreshold is the overall-score fall that raises a
// scoreDrop alert after a deep scan.
const DefaultScoreDropThreshold = 10.0

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job is already running")
	ErrStopped    = errors.New("scheduler is stopped")
)

// TargetLister supplies the targets to process on each firing.
type TargetLister interface {
	Targets(ctx context.Context) ([]models.Target, error)
}

// Auditor runs one audit.
type Auditor interface {
	Run(ctx context.Context, target models.Target, opts audit.Options) audit.Outcome
}

// Config holds the cron expressions and per-job settings. An empty
// expression leaves the job unscheduled but still triggerable.
type Config struct {
	Location           *time.Location
	Schedules          map[string]string
	AuditOptions       audit.Options
	ScoreDropThreshold float64
}

// Deps are the collaborators the jobs use.
type Deps struct {
	Targets  TargetLister
	Auditor  Auditor
	Prober   audit.Prober
	Results  store.ResultStore
	Notifier notify.Notifier
	History  *History
}

// JobStatus is the observable state of one job.
type JobStatus struct {
	Name       string     `json:"name"`
	Schedule   string     `json:"schedule,omitempty"`
	Running    bool       `json:"running"`
	LastStart  *time.Time `json:"lastStart,omitempty"`
	LastFinish *time.Time `json:"lastFinish,omitempty"`
	LastError  string     `json:"lastError,omitempty"`
	Next       *time.Time `json:"next,omitempty"`
}

// Scheduler owns the cron runner and the job state. Its history and
// last-known uptime map live for the life of the process.
type Scheduler struct {
	cfg      Config
	deps     Deps
	cron     *cron.Cron
	logger   *slog.Logger
	jobs     map[string]func(context.Context) error
	entries  map[string]cron.EntryID
	now      func() time.Time
	mu       sync.Mutex
	stopped  bool
	async    sync.WaitGroup
	status   map[string]*JobStatus
	lastSeen map[string]models.UptimeStatus
}

// New creates a Scheduler and registers every job with a schedule.
func New(cfg Config, deps Deps) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ScoreDropThreshold <= 0 {
		cfg.ScoreDropThreshold = DefaultScoreDropThreshold
	}
	if deps.History == nil {
		deps.History = NewHistory(DefaultHistoryLimit)
	}

	logger := slog.Default().With("component", "scheduler")
	cl := cronLogger{logger: logger}

	s := &Scheduler{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		entries:  make(map[string]cron.EntryID),
		now:      time.Now,
		status:   make(map[string]*JobStatus),
		lastSeen: make(map[string]models.UptimeStatus),
	}
	s.jobs = map[string]func(context.Context) error{
		JobUptime:    s.uptimeCheck,
		JobFullAudit: s.fullAudit,
		JobDeepScan:  s.deepScan,
		JobDigest:    s.dailyDigest,
	}

	for name := range s.jobs {
		s.status[name] = &JobStatus{Name: name, Schedule: cfg.Schedules[name]}
	}
	for name, expr := range cfg.Schedules {
		if expr == "" {
			continue
		}
		if _, ok := s.jobs[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
		}
		name := name
		id, err := s.cron.AddFunc(expr, func() {
			if err := s.Trigger(context.Background(), name); err != nil && !errors.Is(err, ErrJobRunning) {
				logger.Error("scheduled job failed", "job", name, "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", name, err)
		}
		s.entries[name] = id
	}
	return s, nil
}

// Start begins firing scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.entries), "timezone", s.cfg.Location.String())
}

// Stop stops firing new jobs, refuses further async triggers and waits for
// running ones, scheduled or triggered, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	done := s.cron.Stop()
	triggered := make(chan struct{})
	go func() {
		s.async.Wait()
		close(triggered)
	}()

	for _, wait := range []<-chan struct{}{done.Done(), triggered} {
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Trigger runs job synchronously. A job already in flight is not started
// twice; ErrJobRunning is returned instead.
func (s *Scheduler) Trigger(ctx context.Context, job string) error {
	fn, ok := s.jobs[job]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}

	s.mu.Lock()
	st := s.status[job]
	if st.Running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobRunning, job)
	}
	started := s.now()
	st.Running = true
	st.LastStart = &started
	s.mu.Unlock()

	log := s.logger.With("job", job)
	log.Info("job started")
	err := fn(ctx)

	s.mu.Lock()
	finished := s.now()
	st.Running = false
	st.LastFinish = &finished
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		log.Error("job failed", "error", err, "duration_ms", finished.Sub(started).Milliseconds())
		return err
	}
	log.Info("job finished", "duration_ms", finished.Sub(started).Milliseconds())
	return nil
}

// TriggerAsync validates job and runs it in the background. Stop waits for
// jobs started this way.
func (s *Scheduler) TriggerAsync(job string) error {
	if _, ok := s.jobs[job]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.status[job].Running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobRunning, job)
	}
	s.async.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.async.Done()
		if err := s.Trigger(context.Background(), job); err != nil && !errors.Is(err, ErrJobRunning) {
			s.logger.Error("triggered job failed", "job", job, "error", err)
		}
	}()
	return nil
}

// Jobs reports the state of every job, sorted by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	out := make([]JobStatus, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
	}
	s.mu.Unlock()

	for i := range out {
		id, ok := s.entries[out[i].Name]
		if !ok {
			continue
		}
		entry := s.cron.Entry(id)
		next := entry.Next
		// cron fills Next lazily once its run loop is up.
		if next.IsZero() && entry.Schedule != nil {
			next = entry.Schedule.Next(s.now().In(s.cfg.Location))
		}
		if !next.IsZero() {
			out[i].Next = &next
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// History exposes the in-memory result ring.
func (s *Scheduler) History() *History { return s.deps.History }

func (s *Scheduler) alert(typ models.AlertType, target *models.Target, details any) models.Alert {
	a := models.Alert{
		ID:        uuid.New().String(),
		Type:      typ,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}
	if target != nil {
		a.TargetID = target.ID
		a.TargetName = target.Name
	}
	return a
}
