package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/sitewatch/internal/api"
	mw "github.com/kiranshivaraju/sitewatch/internal/api/middleware"
	"github.com/kiranshivaraju/sitewatch/internal/cache"
)

// --- stub cache that counts every key from one ---

type stubCache struct{ counts map[string]int64 }

func (c *stubCache) Ping(_ context.Context) error { return nil }
func (c *stubCache) Close() error                 { return nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.counts[key]++
	return c.counts[key], nil
}

var _ cache.Cache = (*stubCache)(nil)

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"data":{}}`))
}

func newTestRouter(limit int) http.Handler {
	return api.NewRouter(api.Dependencies{
		RateLimit: mw.NewRateLimit(&stubCache{counts: map[string]int64{}}, limit,
			mw.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })),
		HealthHandler: ok,
		ListTargets:   ok,
	})
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(60)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnwiredEndpoints_NotImplemented(t *testing.T) {
	router := newTestRouter(60)

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/targets"},
		{"DELETE", "/api/v1/targets/acme"},
		{"POST", "/api/v1/targets/acme/audits"},
		{"GET", "/api/v1/targets/acme/report"},
		{"GET", "/api/v1/results"},
		{"GET", "/api/v1/results/latest"},
		{"GET", "/api/v1/results/export"},
		{"GET", "/api/v1/jobs"},
		{"POST", "/api/v1/jobs/full-audit"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(ep.method, ep.path, nil))

			assert.Equal(t, http.StatusNotImplemented, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "NOT_IMPLEMENTED", body["error"].(map[string]any)["code"])
		})
	}
}

func TestRouter_RateLimitSparesHealth(t *testing.T) {
	router := newTestRouter(1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/targets", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/targets", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRouter_RealIPKeysLimiter(t *testing.T) {
	router := newTestRouter(1)

	for _, ip := range []string{"203.0.113.7", "203.0.113.8"} {
		req := httptest.NewRequest("GET", "/api/v1/targets", nil)
		req.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, ip)
	}
}

func TestRouter_NilRateLimit(t *testing.T) {
	router := api.NewRouter(api.Dependencies{ListTargets: ok})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/targets", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(60)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
