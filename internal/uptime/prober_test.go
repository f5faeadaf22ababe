package uptime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

func statusServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestProbe_Classification(t *testing.T) {
	tests := []struct {
		name string
		code int
		want models.UptimeStatus
	}{
		{"ok", http.StatusOK, models.StatusUp},
		{"redirect", http.StatusNotModified, models.StatusUp},
		{"not found counts as up", http.StatusNotFound, models.StatusUp},
		{"499 is still up", 499, models.StatusUp},
		{"internal error", http.StatusInternalServerError, models.StatusDown},
		{"unavailable", http.StatusServiceUnavailable, models.StatusDown},
	}

	p := NewProber(5 * time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := statusServer(t, tt.code)

			got := p.Probe(context.Background(), ts.URL)
			if got.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Status)
			}
			if got.StatusCode == nil || *got.StatusCode != tt.code {
				t.Errorf("expected status code %d, got %v", tt.code, got.StatusCode)
			}
			if got.Latency == nil {
				t.Error("expected latency to be recorded")
			}
			if got.Error != "" {
				t.Errorf("expected no error, got %q", got.Error)
			}
		})
	}
}

func TestProbe_NetworkFailure(t *testing.T) {
	ts := statusServer(t, http.StatusOK)
	url := ts.URL
	ts.Close()

	got := NewProber(time.Second).Probe(context.Background(), url)
	if got.Status != models.StatusDown {
		t.Errorf("expected DOWN, got %s", got.Status)
	}
	if got.StatusCode != nil {
		t.Errorf("expected no status code, got %d", *got.StatusCode)
	}
	if got.Error == "" {
		t.Error("expected error description")
	}
}

func TestProbe_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	got := NewProber(50 * time.Millisecond).Probe(context.Background(), ts.URL)
	if got.Status != models.StatusDown {
		t.Errorf("expected DOWN on timeout, got %s", got.Status)
	}
	if got.Error == "" {
		t.Error("expected timeout error description")
	}
}

func TestProbe_InvalidURL(t *testing.T) {
	got := NewProber(time.Second).Probe(context.Background(), "://bad url")
	if got.Status != models.StatusDown {
		t.Errorf("expected DOWN, got %s", got.Status)
	}
	if got.Error == "" {
		t.Error("expected error description")
	}
}

func TestNewProber_DefaultTimeout(t *testing.T) {
	p := NewProber(0)
	if p.client.Timeout != DefaultTimeout {
		t.Errorf("expected %v, got %v", DefaultTimeout, p.client.Timeout)
	}
}
