// Package report assembles the analysis and recommendation plan for a
// target from its stored audit history.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiranshivaraju/sitewatch/internal/analysis"
	"github.com/kiranshivaraju/sitewatch/internal/recommend"
	"github.com/kiranshivaraju/sitewatch/internal/store"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

var ErrNoResults = errors.New("no audit results for target")

// Report is recomputed on every request and never stored.
type Report struct {
	TargetID     string             `json:"targetId"`
	TargetName   string             `json:"targetName,omitempty"`
	Latest       models.AuditResult `json:"latest"`
	Analysis     models.Analysis    `json:"analysis"`
	Plan         models.Plan        `json:"plan"`
	HistoryCount int                `json:"historyCount"`
	GeneratedAt  time.Time          `json:"generatedAt"`
}

// Service builds reports from a ResultStore.
type Service struct {
	store store.ResultStore
	now   func() time.Time
}

func NewService(st store.ResultStore) *Service {
	return &Service{store: st, now: time.Now}
}

// Build analyses the latest record of targetID against the earlier ones.
func (s *Service) Build(ctx context.Context, targetID string) (*Report, error) {
	results, err := s.store.List(ctx, store.Filter{TargetID: targetID})
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, targetID)
	}

	latest := results[len(results)-1]
	history := results[:len(results)-1]
	scores := latest.Scores.Map()
	a := analysis.Analyze(scores, history)

	return &Report{
		TargetID:     targetID,
		TargetName:   latest.TargetName,
		Latest:       latest,
		Analysis:     a,
		Plan:         recommend.Generate(scores, latest.Opportunities, a),
		HistoryCount: len(history),
		GeneratedAt:  s.now().UTC(),
	}, nil
}
