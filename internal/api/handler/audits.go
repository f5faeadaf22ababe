package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/sitewatch/internal/api/response"
	"github.com/kiranshivaraju/sitewatch/internal/audit"
	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// Auditor runs one audit.
type Auditor interface {
	Run(ctx context.Context, target models.Target, opts audit.Options) audit.Outcome
}

// NewRunAuditHandler returns POST /api/v1/targets/{targetID}/audits. The
// audit runs synchronously on the request context; the body may override
// the artifact format.
func NewRunAuditHandler(reg TargetRegistry, auditor Auditor, defaults audit.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Format string `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		opts := defaults
		switch req.Format {
		case "":
		case config.FormatHTML, config.FormatJSON:
			opts.Format = req.Format
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "format must be html or json", nil)
			return
		}

		target, err := reg.Get(r.Context(), chi.URLParam(r, "targetID"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		out := auditor.Run(r.Context(), target.Target, opts)
		if !out.Success {
			writeError(w, r, out.Error)
			return
		}
		response.Created(w, out.Result)
	}
}
