// Package uptime classifies a target as UP or DOWN with a single HEAD request.
package uptime

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

const DefaultTimeout = 10 * time.Second

// Prober issues bounded-timeout HEAD requests. Safe for concurrent use.
type Prober struct {
	client *http.Client
}

// NewProber creates a Prober whose requests give up after timeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{client: &http.Client{Timeout: timeout}}
}

// Probe never returns an error: network failures are reported as DOWN with
// Error set and no StatusCode. A response counts as UP when its status is
// below 500, so client errors such as 404 still mean the host is serving.
func (p *Prober) Probe(ctx context.Context, url string) models.Uptime {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return down(start, err)
	}
	req.Header.Set("User-Agent", "SiteWatch-Uptime/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return down(start, err)
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	latency := time.Since(start).Milliseconds()
	status := models.StatusDown
	if code < http.StatusInternalServerError {
		status = models.StatusUp
	}

	return models.Uptime{
		Status:     status,
		StatusCode: &code,
		Latency:    &latency,
	}
}

func down(start time.Time, err error) models.Uptime {
	latency := time.Since(start).Milliseconds()
	return models.Uptime{
		Status:  models.StatusDown,
		Latency: &latency,
		Error:   err.Error(),
	}
}
