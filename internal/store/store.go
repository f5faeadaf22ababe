// Package store persists audit results as self-describing report artifacts.
package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

var (
	ErrPersistence   = errors.New("persist audit result")
	ErrInvalidResult = errors.New("invalid audit result")
	ErrNoMarker      = errors.New("artifact has no metadata marker")
	ErrManyMarkers   = errors.New("artifact has more than one metadata marker")
)

// ResultStore is the append-only history of audit results. There is no
// update or delete; corrections require a new audit run.
type ResultStore interface {
	Ping(ctx context.Context) error
	Append(ctx context.Context, result models.AuditResult, opts AppendOptions) (string, error)
	List(ctx context.Context, filter Filter) ([]models.AuditResult, error)
	LatestPerTarget(ctx context.Context) (map[string]models.AuditResult, error)
}

// AppendOptions controls how the artifact body is rendered.
type AppendOptions struct {
	// Format is "html" for the full human-readable report, anything else
	// for a minimal wrapper around the raw record.
	Format string
}

// Filter narrows List. Zero values mean no restriction.
type Filter struct {
	TargetID string
	// Since excludes records older than this epoch-millis timestamp.
	Since int64
	// Limit keeps only the most recent N records after filtering.
	Limit int
}
