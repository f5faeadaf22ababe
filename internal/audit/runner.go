// Package audit runs one quality audit of a target end to end: uptime probe,
// session acquisition, navigation, screenshot, category audit and
// persistence.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/internal/store"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

const (
	DefaultMaxAttempts       = 2
	DefaultRetryDelay        = 2 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultTimeout           = 120 * time.Second
)

// State is a step of a single audit run.
type State string

const (
	StateIdle       State = "idle"
	StateAcquiring  State = "acquiring"
	StateNavigating State = "navigating"
	StateAuditing   State = "auditing"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Prober reports uptime for a URL. It never fails; failures are DOWN.
type Prober interface {
	Probe(ctx context.Context, url string) models.Uptime
}

// Options are per-run settings.
type Options struct {
	Format        string
	Thresholds    config.Thresholds
	ScreenshotDir string
}

// Outcome is the result of Run. Error is set iff Success is false.
type Outcome struct {
	Success bool
	Result  *models.AuditResult
	Target  string
	Error   error
}

// RunnerConfig tunes retries and timeouts. Zero values take the defaults.
type RunnerConfig struct {
	MaxAttempts       int
	RetryDelay        time.Duration
	NavigationTimeout time.Duration
	Timeout           time.Duration
}

// Runner executes audits. A target can have at most one run in flight.
type Runner struct {
	backend Backend
	prober  Prober
	store   store.ResultStore
	cfg     RunnerConfig
	locks   *keyedLock
	now     func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(backend Backend, prober Prober, st store.ResultStore, cfg RunnerConfig) *Runner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Runner{
		backend: backend,
		prober:  prober,
		store:   st,
		cfg:     cfg,
		locks:   newKeyedLock(),
		now:     time.Now,
	}
}

// Config returns the effective runner configuration.
func (r *Runner) Config() RunnerConfig { return r.cfg }

// Run audits target. It never panics and never returns an error directly;
// every failure is reported through the Outcome.
func (r *Runner) Run(ctx context.Context, target models.Target, opts Options) (out Outcome) {
	name := target.Name
	if name == "" {
		name = target.ID
	}
	runID := uuid.New().String()
	log := slog.With("run_id", runID, "target_id", target.ID)

	if !r.locks.tryLock(target.ID) {
		log.Warn("audit skipped, run already in flight")
		return Outcome{Target: name, Error: fmt.Errorf("%w: %s", ErrAuditInProgress, target.ID)}
	}
	defer r.locks.unlock(target.ID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("audit panicked", "state", StateFailed, "panic", rec)
			out = Outcome{Target: name, Error: fmt.Errorf("audit panicked: %v", rec)}
		}
	}()

	start := r.now()
	result, err := r.run(ctx, log, target, opts)
	if err != nil {
		transition(log, StateFailed)
		log.Error("audit failed", "error", err, "duration_ms", r.now().Sub(start).Milliseconds())
		return Outcome{Target: name, Error: err}
	}

	transition(log, StateDone)
	log.Info("audit completed",
		"duration_ms", r.now().Sub(start).Milliseconds(),
		"opportunities", len(result.Opportunities),
	)
	return Outcome{Success: true, Result: result, Target: name}
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, target models.Target, opts Options) (*models.AuditResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	transition(log, StateIdle)
	uptime := r.prober.Probe(ctx, target.URL)

	session, err := r.acquire(ctx, log, target.URL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("closing audit session", "error", cerr)
		}
	}()

	ts := r.now().UnixMilli()
	shot := r.saveScreenshot(ctx, log, session, opts.ScreenshotDir, store.ArtifactBaseName(target.ID, ts))

	transition(log, StateAuditing)
	native, err := session.Audit(ctx, target.URL)
	if err != nil {
		return nil, fmt.Errorf("running audit: %w", err)
	}
	scores := scale(native)

	result := &models.AuditResult{
		TargetID:      target.ID,
		TargetName:    target.Name,
		URL:           target.URL,
		ClientID:      target.ClientID,
		Timestamp:     ts,
		Scores:        scores,
		Uptime:        uptime,
		Opportunities: Opportunities(scores, opts.Thresholds),
		ScreenshotRef: shot,
	}

	transition(log, StatePersisting)
	path, err := r.store.Append(ctx, *result, store.AppendOptions{Format: opts.Format})
	if err != nil {
		return nil, fmt.Errorf("saving result: %w", err)
	}
	log.Debug("artifact written", "path", path)
	return result, nil
}

// acquire runs the retryable span: acquire a session and navigate to url.
// The last attempt's error is returned when every attempt fails.
func (r *Runner) acquire(ctx context.Context, log *slog.Logger, url string) (Session, error) {
	var (
		session Session
		attempt int
	)
	backoff := retry.WithMaxRetries(uint64(r.cfg.MaxAttempts-1), retry.NewConstant(r.cfg.RetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		transition(log, StateAcquiring, "attempt", attempt)
		s, err := r.backend.Acquire(ctx)
		if err != nil {
			log.Warn("acquire failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}

		transition(log, StateNavigating, "attempt", attempt)
		navCtx, cancel := context.WithTimeout(ctx, r.navigationTimeout())
		err = s.Navigate(navCtx, url)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrNavigationTimeout) {
				err = fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
			}
			_ = s.Close()
			log.Warn("navigation failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}

		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// navigationTimeout caps one Navigate call.
func (r *Runner) navigationTimeout() time.Duration {
	d := r.cfg.NavigationTimeout
	if nb, ok := r.backend.(NavigationBudgeter); ok && nb.NavigationBudget() > d {
		d = nb.NavigationBudget()
	}
	return d
}

// saveScreenshot captures and stores a screenshot, returning its path. A
// failed capture is logged and leaves the reference empty.
func (r *Runner) saveScreenshot(ctx context.Context, log *slog.Logger, s Session, dir, base string) string {
	if dir == "" {
		return ""
	}
	img, err := s.Screenshot(ctx)
	if err != nil {
		log.Warn("screenshot failed", "error", err)
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("creating screenshot directory", "error", err)
		return ""
	}
	path := filepath.Join(dir, base+screenshotExt(img))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		log.Warn("writing screenshot", "error", err)
		return ""
	}
	return path
}

// screenshotExt picks the file extension from the image bytes. Hosted
// audits return JPEG, local captures PNG.
func screenshotExt(img []byte) string {
	switch http.DetectContentType(img) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func transition(log *slog.Logger, s State, args ...any) {
	log.Debug("audit state", append([]any{"state", s}, args...)...)
}
