package handler

import (
	"bytes"
	"net/http"
	"sort"
	"strconv"

	"github.com/kiranshivaraju/sitewatch/internal/api/response"
	"github.com/kiranshivaraju/sitewatch/internal/export"
	"github.com/kiranshivaraju/sitewatch/internal/store"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

const (
	defaultResultLimit = 100
	maxResultLimit     = 1000
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// NewListResultsHandler returns GET /api/v1/results.
// Query: target_id, since (epoch ms), limit (1..1000, default 100).
func NewListResultsHandler(st store.ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := parseFilter(w, r)
		if !ok {
			return
		}
		results, err := st.List(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Collection(w, results, response.ListMeta{Count: len(results), Limit: filter.Limit})
	}
}

// NewLatestResultsHandler returns GET /api/v1/results/latest, one result per
// target ordered by target id.
func NewLatestResultsHandler(st store.ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, err := st.LatestPerTarget(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]models.AuditResult, 0, len(latest))
		for _, res := range latest {
			out = append(out, res)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
		response.Collection(w, out, response.ListMeta{Count: len(out)})
	}
}

// NewExportResultsHandler returns GET /api/v1/results/export as an XLSX
// download. It takes the same query as the list endpoint.
func NewExportResultsHandler(st store.ResultStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := parseFilter(w, r)
		if !ok {
			return
		}
		results, err := st.List(r.Context(), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteResults(&buf, results); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="sitewatch-results.xlsx"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		buf.WriteTo(w)
	}
}

func parseFilter(w http.ResponseWriter, r *http.Request) (store.Filter, bool) {
	q := r.URL.Query()
	f := store.Filter{TargetID: q.Get("target_id"), Limit: defaultResultLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxResultLimit {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 1000", nil)
			return store.Filter{}, false
		}
		f.Limit = n
	}
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "since must be epoch milliseconds", nil)
			return store.Filter{}, false
		}
		f.Since = n
	}
	return f, true
}
