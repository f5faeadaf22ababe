package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// Backend hands out audit sessions. Implementations must be safe for
// concurrent use.
type Backend interface {
	Name() string
	Acquire(ctx context.Context) (Session, error)
}

// Session is one acquired audit environment. Audit returns category scores
// on the native 0..1 scale. Close must be safe to call after any failure.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context) ([]byte, error)
	Audit(ctx context.Context, url string) (models.Scores, error)
	Close() error
}

// NavigationBudgeter is implemented by backends whose Navigate does more
// than load the page. The runner gives such a Navigate the larger of its
// navigation timeout and the budget, still inside the run timeout.
type NavigationBudgeter interface {
	NavigationBudget() time.Duration
}

// NewBackend constructs the backend selected by cfg.Backend.
// Called once at server startup.
func NewBackend(cfg config.AuditConfig) (Backend, error) {
	switch cfg.Backend {
	case config.BackendBrowser:
		return NewBrowserBackend(cfg.ChromePath, cfg.LighthousePath), nil
	case config.BackendHosted:
		return NewHostedBackend(cfg.PageSpeed, requestTimeout(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown audit backend %q: must be one of browser, hosted", cfg.Backend)
	}
}

// requestTimeout bounds a single PageSpeed call; the API navigates and
// audits in one request so it gets the whole audit budget.
func requestTimeout(cfg config.AuditConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return 2 * time.Minute
}
