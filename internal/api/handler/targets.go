package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/sitewatch/internal/api/response"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// TargetRegistry is the registry surface the handlers depend on.
type TargetRegistry interface {
	List(ctx context.Context) ([]models.RegisteredTarget, error)
	Get(ctx context.Context, id string) (models.RegisteredTarget, error)
	Add(ctx context.Context, t models.Target) (models.RegisteredTarget, error)
	Remove(ctx context.Context, id string) error
}

// NewListTargetsHandler returns GET /api/v1/targets.
func NewListTargetsHandler(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targets, err := reg.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Collection(w, targets, response.ListMeta{Count: len(targets)})
	}
}

// NewAddTargetHandler returns POST /api/v1/targets.
func NewAddTargetHandler(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			URL      string `json:"url"`
			ClientID string `json:"clientId"`
			Type     string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.URL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "url is required", nil)
			return
		}

		added, err := reg.Add(r.Context(), models.Target{
			ID:       req.ID,
			Name:     req.Name,
			URL:      req.URL,
			ClientID: req.ClientID,
			Type:     req.Type,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, added)
	}
}

// NewRemoveTargetHandler returns DELETE /api/v1/targets/{targetID}.
func NewRemoveTargetHandler(reg TargetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := reg.Remove(r.Context(), chi.URLParam(r, "targetID")); err != nil {
			writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}
