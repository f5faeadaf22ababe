package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/sitewatch/internal/api/response"
	"github.com/kiranshivaraju/sitewatch/internal/scheduler"
)

// JobRunner is the scheduler surface the handlers depend on.
type JobRunner interface {
	TriggerAsync(job string) error
	Jobs() []scheduler.JobStatus
}

// NewListJobsHandler returns GET /api/v1/jobs.
func NewListJobsHandler(jobs JobRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list := jobs.Jobs()
		response.Collection(w, list, response.ListMeta{Count: len(list)})
	}
}

// NewTriggerJobHandler returns POST /api/v1/jobs/{job}. The job runs in
// the background; poll GET /api/v1/jobs for its state.
func NewTriggerJobHandler(jobs JobRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "job")
		if err := jobs.TriggerAsync(name); err != nil {
			writeError(w, r, err)
			return
		}
		response.Accepted(w, map[string]string{"job": name, "status": "started"})
	}
}
