package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// HostedBackend audits through the PageSpeed Insights v5 API. The remote
// service loads and audits the page in one call, so Navigate is where the
// request is made and it runs under the request budget.
type HostedBackend struct {
	apiURL   string
	apiKey   string
	strategy string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHostedBackend creates a PageSpeed client limited to cfg.RequestsPerSecond.
func NewHostedBackend(cfg config.PageSpeedConfig, timeout time.Duration) *HostedBackend {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &HostedBackend{
		apiURL:   cfg.APIURL,
		apiKey:   cfg.APIKey,
		strategy: cfg.Strategy,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (b *HostedBackend) Name() string { return config.BackendHosted }

// NavigationBudget is the PageSpeed request timeout.
func (b *HostedBackend) NavigationBudget() time.Duration { return b.timeout }

// Acquire waits for a slot in the client-side quota.
func (b *HostedBackend) Acquire(ctx context.Context) (Session, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: pagespeed quota: %v", ErrAcquisition, err)
	}
	return &hostedSession{backend: b}, nil
}

type hostedSession struct {
	backend *HostedBackend

	mu     sync.Mutex
	url    string
	report *lighthouseReport
}

func (s *hostedSession) Navigate(ctx context.Context, target string) error {
	b := s.backend
	params := url.Values{
		"url":      {target},
		"category": {"performance", "accessibility", "best-practices", "seo"},
	}
	if b.strategy != "" {
		params.Set("strategy", b.strategy)
	}
	if b.apiKey != "" {
		params.Set("key", b.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: pagespeed status %d: %s", ErrAcquisition, resp.StatusCode, body)
	}

	var psr pageSpeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&psr); err != nil {
		return fmt.Errorf("%w: decoding pagespeed response: %v", ErrInvalidReport, err)
	}

	s.mu.Lock()
	s.url = target
	s.report = &psr.LighthouseResult
	s.mu.Unlock()
	return nil
}

func (s *hostedSession) Screenshot(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return nil, fmt.Errorf("screenshot before navigation")
	}
	return s.report.finalScreenshot()
}

func (s *hostedSession) Audit(_ context.Context, target string) (models.Scores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil || s.url != target {
		return models.Scores{}, fmt.Errorf("audit of %q before navigation", target)
	}
	return s.report.scores()
}

func (s *hostedSession) Close() error { return nil }

type pageSpeedResponse struct {
	LighthouseResult lighthouseReport `json:"lighthouseResult"`
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrAcquisition, err)
}

var (
	_ Backend            = (*HostedBackend)(nil)
	_ NavigationBudgeter = (*HostedBackend)(nil)
)
