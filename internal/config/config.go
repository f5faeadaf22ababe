package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the SiteWatch server.
type Config struct {
	Server    ServerConfig
	Targets   TargetsConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Audit     AuditConfig
	Schedule  ScheduleConfig
	Alerting  AlertingConfig
	RateLimit int
}

type ServerConfig struct {
	Port     int
	Env      string
	LogLevel slog.Level
}

type TargetsConfig struct {
	File          string
	OverlayDBPath string
}

type StorageConfig struct {
	ReportsDir     string
	ScreenshotsDir string
}

type DatabaseConfig struct {
	URL             string
	MigrationsDir   string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuditConfig struct {
	Backend           string
	Format            string
	LighthousePath    string
	ChromePath        string
	PageSpeed         PageSpeedConfig
	UptimeTimeout     time.Duration
	NavigationTimeout time.Duration
	Timeout           time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
	Thresholds        Thresholds
}

type PageSpeedConfig struct {
	APIURL            string
	APIKey            string
	Strategy          string
	RequestsPerSecond float64
}

// Thresholds are the per-category scores below which an opportunity is raised.
type Thresholds struct {
	Performance   float64
	Accessibility float64
	BestPractices float64
	SEO           float64
}

// DefaultThresholds returns the stock 90/90/80/90 thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Performance: 90, Accessibility: 90, BestPractices: 80, SEO: 90}
}

type ScheduleConfig struct {
	Enabled            bool
	Timezone           string
	Uptime             string
	FullAudit          string
	DeepScan           string
	Digest             string
	HistoryLimit       int
	ScoreDropThreshold float64
}

type AlertingConfig struct {
	WebhookURL string
}

const (
	BackendBrowser = "browser"
	BackendHosted  = "hosted"

	FormatHTML = "html"
	FormatJSON = "json"
)

var validBackends = map[string]bool{
	BackendBrowser: true,
	BackendHosted:  true,
}

var validFormats = map[string]bool{
	FormatHTML: true,
	FormatJSON: true,
}

// Load reads configuration from environment variables (after an optional
// .env file) and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	reportsDir := envString("REPORTS_DIR", "reports")
	def := DefaultThresholds()

	cfg := &Config{
		Server: ServerConfig{
			Port:     envInt("SITEWATCH_PORT", 8080),
			Env:      envString("SITEWATCH_ENV", "development"),
			LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
		},
		Targets: TargetsConfig{
			File:          envString("TARGETS_FILE", "targets.yaml"),
			OverlayDBPath: envString("OVERLAY_DB_PATH", "data/targets.db"),
		},
		Storage: StorageConfig{
			ReportsDir:     reportsDir,
			ScreenshotsDir: envString("SCREENSHOTS_DIR", reportsDir+"/screenshots"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MigrationsDir:   envString("MIGRATIONS_DIR", "migrations"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Audit: AuditConfig{
			Backend:        envString("AUDIT_BACKEND", BackendBrowser),
			Format:         envString("AUDIT_FORMAT", FormatHTML),
			LighthousePath: envString("LIGHTHOUSE_PATH", "lighthouse"),
			ChromePath:     os.Getenv("CHROME_PATH"),
			PageSpeed: PageSpeedConfig{
				APIURL:            envString("PAGESPEED_API_URL", "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"),
				APIKey:            os.Getenv("PAGESPEED_API_KEY"),
				Strategy:          envString("PAGESPEED_STRATEGY", "mobile"),
				RequestsPerSecond: envFloat("PAGESPEED_RPS", 1),
			},
			UptimeTimeout:     envDuration("UPTIME_TIMEOUT", 10*time.Second),
			NavigationTimeout: envDuration("NAVIGATION_TIMEOUT", 30*time.Second),
			Timeout:           envDuration("AUDIT_TIMEOUT", 120*time.Second),
			MaxAttempts:       envInt("AUDIT_MAX_ATTEMPTS", 2),
			RetryDelay:        envDuration("AUDIT_RETRY_DELAY", 2*time.Second),
			Thresholds: Thresholds{
				Performance:   envFloat("THRESHOLD_PERFORMANCE", def.Performance),
				Accessibility: envFloat("THRESHOLD_ACCESSIBILITY", def.Accessibility),
				BestPractices: envFloat("THRESHOLD_BEST_PRACTICES", def.BestPractices),
				SEO:           envFloat("THRESHOLD_SEO", def.SEO),
			},
		},
		Schedule: ScheduleConfig{
			Enabled:            envBool("SCHEDULER_ENABLED", true),
			Timezone:           envString("SCHEDULE_TIMEZONE", "UTC"),
			Uptime:             envString("SCHEDULE_UPTIME", "*/5 * * * *"),
			FullAudit:          envString("SCHEDULE_AUDIT", "0 */6 * * *"),
			DeepScan:           envString("SCHEDULE_DEEP_SCAN", "0 3 1 * *"),
			Digest:             envString("SCHEDULE_DIGEST", "0 8 * * *"),
			HistoryLimit:       envInt("HISTORY_LIMIT", 100),
			ScoreDropThreshold: envFloat("SCORE_DROP_THRESHOLD", 10),
		},
		Alerting: AlertingConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		},
		RateLimit: envInt("RATE_LIMIT_PER_MIN", 60),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Location returns the scheduler timezone. validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SITEWATCH_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Storage.ReportsDir == "" {
		return fmt.Errorf("REPORTS_DIR is required")
	}

	if !validBackends[c.Audit.Backend] {
		return fmt.Errorf("AUDIT_BACKEND must be one of browser, hosted; got %q", c.Audit.Backend)
	}
	if !validFormats[c.Audit.Format] {
		return fmt.Errorf("AUDIT_FORMAT must be one of html, json; got %q", c.Audit.Format)
	}
	if c.Audit.Backend == BackendHosted && !isHTTPURL(c.Audit.PageSpeed.APIURL) {
		return fmt.Errorf("PAGESPEED_API_URL must start with http:// or https://, got %q", c.Audit.PageSpeed.APIURL)
	}
	if c.Audit.Backend == BackendHosted && c.Audit.PageSpeed.RequestsPerSecond <= 0 {
		return fmt.Errorf("PAGESPEED_RPS must be positive")
	}
	if c.Audit.MaxAttempts < 1 {
		return fmt.Errorf("AUDIT_MAX_ATTEMPTS must be at least 1, got %d", c.Audit.MaxAttempts)
	}
	if c.Audit.RetryDelay <= 0 {
		return fmt.Errorf("AUDIT_RETRY_DELAY must be positive")
	}

	for name, v := range map[string]float64{
		"THRESHOLD_PERFORMANCE":    c.Audit.Thresholds.Performance,
		"THRESHOLD_ACCESSIBILITY":  c.Audit.Thresholds.Accessibility,
		"THRESHOLD_BEST_PRACTICES": c.Audit.Thresholds.BestPractices,
		"THRESHOLD_SEO":            c.Audit.Thresholds.SEO,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be within [0,100], got %v", name, v)
		}
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE is not a valid IANA zone: %q", c.Schedule.Timezone)
	}
	for name, expr := range map[string]string{
		"SCHEDULE_UPTIME":    c.Schedule.Uptime,
		"SCHEDULE_AUDIT":     c.Schedule.FullAudit,
		"SCHEDULE_DEEP_SCAN": c.Schedule.DeepScan,
		"SCHEDULE_DIGEST":    c.Schedule.Digest,
	} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("%s is not a valid cron expression %q: %v", name, expr, err)
		}
	}
	if c.Schedule.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be at least 1, got %d", c.Schedule.HistoryLimit)
	}

	if c.Database.URL != "" && !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must be a postgres:// URL")
	}
	if c.Alerting.WebhookURL != "" && !isHTTPURL(c.Alerting.WebhookURL) {
		return fmt.Errorf("ALERT_WEBHOOK_URL must start with http:// or https://, got %q", c.Alerting.WebhookURL)
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return lvl
}
