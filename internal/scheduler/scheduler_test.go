package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/sitewatch/internal/audit"
	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/internal/scheduler"
	"github.com/kiranshivaraju/sitewatch/internal/store"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// --- fakes ---

type staticTargets []models.Target

func (s staticTargets) Targets(context.Context) ([]models.Target, error) { return s, nil }

type recorder struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (r *recorder) Notify(_ context.Context, a models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *recorder) all() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Alert(nil), r.alerts...)
}

type sequenceProber struct {
	mu     sync.Mutex
	seq    map[string][]models.UptimeStatus
	called map[string]int
}

func (p *sequenceProber) Probe(_ context.Context, url string) models.Uptime {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.called == nil {
		p.called = map[string]int{}
	}
	i := p.called[url]
	p.called[url]++
	seq := p.seq[url]
	if i >= len(seq) {
		i = len(seq) - 1
	}
	return models.Uptime{Status: seq[i]}
}

// fakeAuditor persists whatever scores the test queued for a target.
type fakeAuditor struct {
	mu     sync.Mutex
	store  store.ResultStore
	scores map[string]models.Scores
	fail   map[string]bool
	opts   []audit.Options
	clock  int64
}

func (a *fakeAuditor) Run(ctx context.Context, t models.Target, opts audit.Options) audit.Outcome {
	a.mu.Lock()
	a.opts = append(a.opts, opts)
	a.clock++
	ts := 1_000_000 + a.clock
	sc, fail := a.scores[t.ID], a.fail[t.ID]
	a.mu.Unlock()

	if fail {
		return audit.Outcome{Target: t.Name, Error: errors.New("browser crashed")}
	}
	r := models.AuditResult{
		TargetID:      t.ID,
		TargetName:    t.Name,
		URL:           t.URL,
		Timestamp:     ts,
		Scores:        sc,
		Uptime:        models.Uptime{Status: models.StatusUp},
		Opportunities: audit.Opportunities(sc, opts.Thresholds),
	}
	if _, err := a.store.Append(ctx, r, store.AppendOptions{Format: opts.Format}); err != nil {
		return audit.Outcome{Target: t.Name, Error: err}
	}
	return audit.Outcome{Success: true, Result: &r, Target: t.Name}
}

var (
	acme   = models.Target{ID: "acme", Name: "Acme", URL: "https://acme.example"}
	globex = models.Target{ID: "globex", Name: "Globex", URL: "https://globex.example"}
)

func uniform(v float64) models.Scores {
	return models.Scores{Performance: v, Accessibility: v, BestPractices: v, SEO: v}
}

type fixture struct {
	sched    *scheduler.Scheduler
	notifier *recorder
	auditor  *fakeAuditor
	store    *store.FileStore
	prober   *sequenceProber
}

func newFixture(t *testing.T, targets ...models.Target) *fixture {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		notifier: &recorder{},
		auditor:  &fakeAuditor{store: st, scores: map[string]models.Scores{}, fail: map[string]bool{}},
		store:    st,
		prober:   &sequenceProber{seq: map[string][]models.UptimeStatus{}},
	}
	f.sched, err = scheduler.New(scheduler.Config{
		AuditOptions: audit.Options{Format: config.FormatJSON, Thresholds: config.DefaultThresholds()},
	}, scheduler.Deps{
		Targets:  staticTargets(targets),
		Auditor:  f.auditor,
		Prober:   f.prober,
		Results:  st,
		Notifier: f.notifier,
		History:  scheduler.NewHistory(100),
	})
	require.NoError(t, err)
	return f
}

func ofType(alerts []models.Alert, typ models.AlertType) []models.Alert {
	var out []models.Alert
	for _, a := range alerts {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

// --- uptime ---

func TestUptimeCheck_AlertsOnFlipToDown(t *testing.T) {
	f := newFixture(t, acme)
	f.prober.seq[acme.URL] = []models.UptimeStatus{
		models.StatusUp, models.StatusDown, models.StatusDown, models.StatusUp, models.StatusDown,
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, f.sched.Trigger(ctx, scheduler.JobUptime))
	}

	downs := ofType(f.notifier.all(), models.AlertDowntime)
	require.Len(t, downs, 2)
	assert.Equal(t, "acme", downs[0].TargetID)
	assert.NotEmpty(t, downs[0].ID)
}

func TestUptimeCheck_FirstProbeDownAlerts(t *testing.T) {
	f := newFixture(t, acme, globex)
	f.prober.seq[acme.URL] = []models.UptimeStatus{models.StatusDown}
	f.prober.seq[globex.URL] = []models.UptimeStatus{models.StatusUp}

	require.NoError(t, f.sched.Trigger(context.Background(), scheduler.JobUptime))

	downs := ofType(f.notifier.all(), models.AlertDowntime)
	require.Len(t, downs, 1)
	assert.Equal(t, "acme", downs[0].TargetID)
}

// --- full audit ---

func TestFullAudit_BatchesPainPoints(t *testing.T) {
	ghost := models.Target{ID: "ghost", Name: "Ghost", URL: "https://ghost.example"}
	f := newFixture(t, acme, globex, ghost)
	f.auditor.scores["acme"] = models.Scores{Performance: 60, Accessibility: 95, BestPractices: 95, SEO: 95}
	f.auditor.scores["globex"] = uniform(99)
	f.auditor.fail["ghost"] = true

	require.NoError(t, f.sched.Trigger(context.Background(), scheduler.JobFullAudit))

	alerts := f.notifier.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertPainPoints, alerts[0].Type)
	points, ok := alerts[0].Details.([]models.PainPoint)
	require.True(t, ok)
	require.Len(t, points, 1)
	assert.Equal(t, "acme", points[0].TargetID)
	assert.Equal(t, []string{"Speed Optimization Service"}, points[0].Opportunities)

	assert.Len(t, f.sched.History().Entries("acme"), 1)
	assert.Len(t, f.sched.History().Entries("globex"), 1)
	assert.Empty(t, f.sched.History().Entries("ghost"))
}

func TestFullAudit_NoOpportunitiesNoAlert(t *testing.T) {
	f := newFixture(t, acme)
	f.auditor.scores["acme"] = uniform(100)

	require.NoError(t, f.sched.Trigger(context.Background(), scheduler.JobFullAudit))
	assert.Empty(t, f.notifier.all())
}

// --- deep scan ---

func TestDeepScan_AlertsOnScoreDrop(t *testing.T) {
	f := newFixture(t, acme, globex)
	ctx := context.Background()

	f.auditor.scores["acme"] = uniform(90)
	f.auditor.scores["globex"] = uniform(90)
	require.NoError(t, f.sched.Trigger(ctx, scheduler.JobFullAudit))

	f.auditor.scores["acme"] = uniform(80)   // fell by exactly 10
	f.auditor.scores["globex"] = uniform(85) // fell by 5
	require.NoError(t, f.sched.Trigger(ctx, scheduler.JobDeepScan))

	drops := ofType(f.notifier.all(), models.AlertScoreDrop)
	require.Len(t, drops, 1)
	assert.Equal(t, "acme", drops[0].TargetID)
	d, ok := drops[0].Details.(models.ScoreDrop)
	require.True(t, ok)
	assert.InDelta(t, 90, d.Previous, 0.01)
	assert.InDelta(t, 80, d.Current, 0.01)
	assert.InDelta(t, -10, d.Delta, 0.01)

	last := f.auditor.opts[len(f.auditor.opts)-1]
	assert.Equal(t, config.FormatHTML, last.Format)
}

func TestDeepScan_FirstAuditNeverDrops(t *testing.T) {
	f := newFixture(t, acme)
	f.auditor.scores["acme"] = uniform(10)

	require.NoError(t, f.sched.Trigger(context.Background(), scheduler.JobDeepScan))
	assert.Empty(t, ofType(f.notifier.all(), models.AlertScoreDrop))
}

// --- digest ---

func TestDailyDigest(t *testing.T) {
	f := newFixture(t, acme, globex)
	ctx := context.Background()

	require.NoError(t, f.sched.Trigger(ctx, scheduler.JobDigest))
	assert.Empty(t, f.notifier.all(), "empty history sends nothing")

	f.auditor.scores["acme"] = uniform(80)
	f.auditor.scores["globex"] = uniform(100)
	require.NoError(t, f.sched.Trigger(ctx, scheduler.JobFullAudit))
	f.auditor.scores["acme"] = uniform(90)
	require.NoError(t, f.sched.Trigger(ctx, scheduler.JobFullAudit))

	require.NoError(t, f.sched.Trigger(ctx, scheduler.JobDigest))
	digests := ofType(f.notifier.all(), models.AlertDigest)
	require.Len(t, digests, 1)

	entries, ok := digests[0].Details.([]models.DigestEntry)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, "acme", entries[0].TargetID)
	assert.Equal(t, 2, entries[0].Audits)
	assert.InDelta(t, 85, entries[0].AverageOverall, 0.01)
	latest, ok := f.sched.History().Latest("acme")
	require.True(t, ok)
	assert.Equal(t, latest.Timestamp, entries[0].LatestTimestamp)
	assert.Equal(t, uniform(90), latest.Scores)
	assert.Equal(t, "globex", entries[1].TargetID)
}

// --- control ---

func TestTrigger_UnknownJob(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.sched.Trigger(context.Background(), "reboot"), scheduler.ErrUnknownJob)
	assert.ErrorIs(t, f.sched.TriggerAsync("reboot"), scheduler.ErrUnknownJob)
}

func TestTrigger_RejectsOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	blocking := &blockingAuditor{started: started, release: release, once: &once}
	s, err := scheduler.New(scheduler.Config{}, scheduler.Deps{
		Targets:  staticTargets{acme},
		Auditor:  blocking,
		Prober:   &sequenceProber{},
		Results:  st,
		Notifier: &recorder{},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), scheduler.JobFullAudit) }()
	<-started

	assert.ErrorIs(t, s.Trigger(context.Background(), scheduler.JobFullAudit), scheduler.ErrJobRunning)
	for _, j := range s.Jobs() {
		if j.Name == scheduler.JobFullAudit {
			assert.True(t, j.Running)
		}
	}

	close(release)
	require.NoError(t, <-done)
}

func TestStop_WaitsForTriggeredJobs(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	s, err := scheduler.New(scheduler.Config{}, scheduler.Deps{
		Targets:  staticTargets{acme},
		Auditor:  &blockingAuditor{started: started, release: release, once: &once},
		Prober:   &sequenceProber{},
		Results:  st,
		Notifier: &recorder{},
	})
	require.NoError(t, err)

	require.NoError(t, s.TriggerAsync(scheduler.JobFullAudit))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded, "stop returns before the triggered job finished")
	assert.ErrorIs(t, s.TriggerAsync(scheduler.JobDigest), scheduler.ErrStopped)

	close(release)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	require.NoError(t, s.Stop(ctx2))
	for _, j := range s.Jobs() {
		assert.False(t, j.Running, j.Name)
	}
}

type blockingAuditor struct {
	started chan struct{}
	release chan struct{}
	once    *sync.Once
}

func (b *blockingAuditor) Run(_ context.Context, t models.Target, _ audit.Options) audit.Outcome {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return audit.Outcome{Target: t.Name, Error: errors.New("cancelled")}
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := scheduler.New(scheduler.Config{Schedules: map[string]string{scheduler.JobUptime: "every minute"}}, scheduler.Deps{})
	assert.Error(t, err)

	_, err = scheduler.New(scheduler.Config{Schedules: map[string]string{"reboot": "* * * * *"}}, scheduler.Deps{})
	assert.ErrorIs(t, err, scheduler.ErrUnknownJob)
}

func TestStartStop_ReportsNextRun(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	s, err := scheduler.New(scheduler.Config{
		Location:  loc,
		Schedules: map[string]string{scheduler.JobDigest: "0 8 * * *"},
	}, scheduler.Deps{Targets: staticTargets{}, Notifier: &recorder{}})
	require.NoError(t, err)

	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, s.Stop(ctx))
	}()

	jobs := s.Jobs()
	require.Len(t, jobs, 4)
	for _, j := range jobs {
		if j.Name == scheduler.JobDigest {
			require.NotNil(t, j.Next)
			assert.Equal(t, 8, j.Next.In(loc).Hour())
			assert.Equal(t, "0 8 * * *", j.Schedule)
		} else {
			assert.Nil(t, j.Next)
		}
	}
}
