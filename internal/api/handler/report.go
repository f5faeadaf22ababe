package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/sitewatch/internal/api/response"
	"github.com/kiranshivaraju/sitewatch/internal/report"
)

// Reporter builds the analysis and recommendation report of a target.
type Reporter interface {
	Build(ctx context.Context, targetID string) (*report.Report, error)
}

// NewReportHandler returns GET /api/v1/targets/{targetID}/report.
func NewReportHandler(reg TargetRegistry, reporter Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := reg.Get(r.Context(), chi.URLParam(r, "targetID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		rep, err := reporter.Build(r.Context(), target.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rep.TargetName == "" {
			rep.TargetName = target.Name
		}
		response.JSON(w, rep)
	}
}
