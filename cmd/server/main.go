// Package main is the entrypoint for the SiteWatch server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/sitewatch/internal/api"
	"github.com/kiranshivaraju/sitewatch/internal/api/handler"
	mw "github.com/kiranshivaraju/sitewatch/internal/api/middleware"
	"github.com/kiranshivaraju/sitewatch/internal/audit"
	"github.com/kiranshivaraju/sitewatch/internal/cache"
	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/internal/notify"
	"github.com/kiranshivaraju/sitewatch/internal/registry"
	"github.com/kiranshivaraju/sitewatch/internal/report"
	"github.com/kiranshivaraju/sitewatch/internal/scheduler"
	"github.com/kiranshivaraju/sitewatch/internal/store"
	"github.com/kiranshivaraju/sitewatch/internal/uptime"
)

const (
	shutdownTimeout = 30 * time.Second
	webhookTimeout  = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel,
	}))
	slog.SetDefault(logger)
	slog.Info("config loaded", "env", cfg.Server.Env, "audit_backend", cfg.Audit.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Build the service graph
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// 3. Start the scheduler
	if cfg.Schedule.Enabled {
		a.scheduler.Start()
	}

	// 4. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     a.router,
		ReadTimeout: 15 * time.Second,
		// On-demand audits run inside the request.
		WriteTimeout: cfg.Audit.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// app is the wired service graph.
type app struct {
	router    http.Handler
	scheduler *scheduler.Scheduler
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Result store
	results, err := store.NewFileStore(cfg.Storage.ReportsDir)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}

	// Target registry
	static, err := registry.LoadStatic(cfg.Targets.File)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	overlay, err := openOverlay(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { overlay.Close() })
	reg := registry.New(static, overlay)
	slog.Info("targets loaded", "static", len(static))

	// Optional Redis cache for rate limiting
	var (
		rateLimit *mw.RateLimit
		health    = map[string]handler.Pinger{"store": results, "registry": reg}
	)
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		a.closers = append(a.closers, func() { rc.Close() })
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		rateLimit = mw.NewRateLimit(rc, cfg.RateLimit)
		health["cache"] = rc
	}

	// Audit pipeline
	backend, err := audit.NewBackend(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("create audit backend: %w", err)
	}
	slog.Info("audit backend initialized", "backend", backend.Name())

	prober := uptime.NewProber(cfg.Audit.UptimeTimeout)
	runner := audit.NewRunner(backend, prober, results, audit.RunnerConfig{
		MaxAttempts:       cfg.Audit.MaxAttempts,
		RetryDelay:        cfg.Audit.RetryDelay,
		NavigationTimeout: cfg.Audit.NavigationTimeout,
		Timeout:           cfg.Audit.Timeout,
	})
	opts := audit.Options{
		Format:        cfg.Audit.Format,
		Thresholds:    cfg.Audit.Thresholds,
		ScreenshotDir: cfg.Storage.ScreenshotsDir,
	}

	// Alerts and scheduling
	notifier := notify.Multi{notify.NewLogNotifier(slog.Default())}
	if cfg.Alerting.WebhookURL != "" {
		notifier = append(notifier, notify.NewWebhookNotifier(cfg.Alerting.WebhookURL, webhookTimeout))
	}

	a.scheduler, err = scheduler.New(scheduler.Config{
		Location: cfg.Location(),
		Schedules: map[string]string{
			scheduler.JobUptime:    cfg.Schedule.Uptime,
			scheduler.JobFullAudit: cfg.Schedule.FullAudit,
			scheduler.JobDeepScan:  cfg.Schedule.DeepScan,
			scheduler.JobDigest:    cfg.Schedule.Digest,
		},
		AuditOptions:       opts,
		ScoreDropThreshold: cfg.Schedule.ScoreDropThreshold,
	}, scheduler.Deps{
		Targets:  reg,
		Auditor:  runner,
		Prober:   prober,
		Results:  results,
		Notifier: notifier,
		History:  scheduler.NewHistory(cfg.Schedule.HistoryLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	// Router
	a.router = api.NewRouter(api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler: handler.NewHealthHandler(health),
		ListTargets:   handler.NewListTargetsHandler(reg),
		AddTarget:     handler.NewAddTargetHandler(reg),
		RemoveTarget:  handler.NewRemoveTargetHandler(reg),
		RunAudit:      handler.NewRunAuditHandler(reg, runner, opts),
		Report:        handler.NewReportHandler(reg, report.NewService(results)),
		ListResults:   handler.NewListResultsHandler(results),
		LatestResults: handler.NewLatestResultsHandler(results),
		ExportResults: handler.NewExportResultsHandler(results),
		ListJobs:      handler.NewListJobsHandler(a.scheduler),
		TriggerJob:    handler.NewTriggerJobHandler(a.scheduler),
	})
	return a, nil
}

// openOverlay picks Postgres when DATABASE_URL is set, else SQLite.
func openOverlay(ctx context.Context, cfg *config.Config) (registry.Overlay, error) {
	if cfg.Database.URL == "" {
		o, err := registry.OpenSQLite(ctx, cfg.Targets.OverlayDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite overlay: %w", err)
		}
		slog.Info("overlay store ready", "driver", "sqlite", "path", cfg.Targets.OverlayDBPath)
		return o, nil
	}

	pool, err := registry.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := registry.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("overlay store ready", "driver", "postgres")
	return registry.NewPostgresOverlay(pool), nil
}
