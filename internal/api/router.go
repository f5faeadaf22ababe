// Package api wires the HTTP routes of the SiteWatch service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "github.com/kiranshivaraju/sitewatch/internal/api/middleware"
	"github.com/kiranshivaraju/sitewatch/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	// RateLimit may be nil when no Redis is configured.
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	ListTargets  http.HandlerFunc
	AddTarget    http.HandlerFunc
	RemoveTarget http.HandlerFunc
	RunAudit     http.HandlerFunc
	Report       http.HandlerFunc

	ListResults   http.HandlerFunc
	LatestResults http.HandlerFunc
	ExportResults http.HandlerFunc

	ListJobs   http.HandlerFunc
	TriggerJob http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Health stays outside the limiter so probes never see 429.
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/v1/targets", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.ListTargets))
			r.Post("/", orNotImplemented(deps.AddTarget))
			r.Delete("/{targetID}", orNotImplemented(deps.RemoveTarget))
			r.Post("/{targetID}/audits", orNotImplemented(deps.RunAudit))
			r.Get("/{targetID}/report", orNotImplemented(deps.Report))
		})

		r.Get("/api/v1/results", orNotImplemented(deps.ListResults))
		r.Get("/api/v1/results/latest", orNotImplemented(deps.LatestResults))
		r.Get("/api/v1/results/export", orNotImplemented(deps.ExportResults))

		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
		r.Post("/api/v1/jobs/{job}", orNotImplemented(deps.TriggerJob))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
