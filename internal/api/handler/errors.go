// Package handler implements the JSON API endpoints.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/sitewatch/internal/api/response"
	"github.com/kiranshivaraju/sitewatch/internal/audit"
	"github.com/kiranshivaraju/sitewatch/internal/registry"
	"github.com/kiranshivaraju/sitewatch/internal/report"
	"github.com/kiranshivaraju/sitewatch/internal/scheduler"
	"github.com/kiranshivaraju/sitewatch/internal/store"
)

// writeError maps a service error onto a status code and error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		response.Error(w, http.StatusNotFound, "TARGET_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, report.ErrNoResults):
		response.Error(w, http.StatusNotFound, "NO_RESULTS", err.Error(), nil)
	case errors.Is(err, scheduler.ErrUnknownJob):
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, registry.ErrDuplicateTarget):
		response.Error(w, http.StatusConflict, "DUPLICATE_TARGET", err.Error(), nil)
	case errors.Is(err, registry.ErrStaticTarget):
		response.Error(w, http.StatusConflict, "STATIC_TARGET", err.Error(), nil)
	case errors.Is(err, audit.ErrAuditInProgress):
		response.Error(w, http.StatusConflict, "AUDIT_IN_PROGRESS", err.Error(), nil)
	case errors.Is(err, scheduler.ErrJobRunning):
		response.Error(w, http.StatusConflict, "JOB_RUNNING", err.Error(), nil)
	case errors.Is(err, scheduler.ErrStopped):
		response.Error(w, http.StatusServiceUnavailable, "SCHEDULER_STOPPED", err.Error(), nil)
	case errors.Is(err, registry.ErrInvalidTarget):
		response.Error(w, http.StatusBadRequest, "INVALID_TARGET", err.Error(), nil)
	case errors.Is(err, audit.ErrNavigationTimeout):
		response.Error(w, http.StatusBadGateway, "NAVIGATION_TIMEOUT", err.Error(), nil)
	case errors.Is(err, audit.ErrAcquisition), errors.Is(err, audit.ErrInvalidReport):
		response.Error(w, http.StatusBadGateway, "AUDIT_BACKEND_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, store.ErrPersistence):
		slog.Error("persisting result", "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "PERSISTENCE_FAILED",
			"The audit result could not be stored", nil)
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
