package scheduler

import (
	"context"
	"fmt"
	"math"

	"github.com/kiranshivaraju/sitewatch/internal/analysis"
	"github.com/kiranshivaraju/sitewatch/internal/audit"
	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/internal/store"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// uptimeCheck probes every target and alerts immediately on a flip to DOWN.
// A target with no previous probe counts as a flip.
func (s *Scheduler) uptimeCheck(ctx context.Context) error {
	targets, err := s.deps.Targets.Targets(ctx)
	if err != nil {
		return fmt.Errorf("listing targets: %w", err)
	}

	var failed int
	for _, t := range targets {
		u := s.deps.Prober.Probe(ctx, t.URL)

		s.mu.Lock()
		prev, seen := s.lastSeen[t.ID]
		s.lastSeen[t.ID] = u.Status
		s.mu.Unlock()

		if u.Status != models.StatusDown || (seen && prev == models.StatusDown) {
			continue
		}
		t := t
		s.logger.Warn("target went down", "target_id", t.ID, "error", u.Error)
		if err := s.deps.Notifier.Notify(ctx, s.alert(models.AlertDowntime, &t, u)); err != nil {
			s.logger.Error("sending downtime alert", "target_id", t.ID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d downtime alerts could not be delivered", failed)
	}
	return nil
}

// fullAudit audits every target in turn and sends one batched pain-point
// alert for the opportunities found.
func (s *Scheduler) fullAudit(ctx context.Context) error {
	var points []models.PainPoint
	err := s.auditAll(ctx, s.cfg.AuditOptions, func(t models.Target, r models.AuditResult, _ *models.AuditResult) {
		if len(r.Opportunities) == 0 {
			return
		}
		points = append(points, models.PainPoint{
			TargetID:      t.ID,
			TargetName:    t.Name,
			URL:           t.URL,
			Opportunities: r.Opportunities,
		})
	})
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	if err := s.deps.Notifier.Notify(ctx, s.alert(models.AlertPainPoints, nil, points)); err != nil {
		return fmt.Errorf("sending painpoints alert: %w", err)
	}
	return nil
}

// deepScan is a full audit rendered as HTML reports that alerts on every
// target whose overall score fell by at least the configured threshold.
func (s *Scheduler) deepScan(ctx context.Context) error {
	opts := s.cfg.AuditOptions
	opts.Format = config.FormatHTML

	var drops []models.Alert
	err := s.auditAll(ctx, opts, func(t models.Target, r models.AuditResult, prev *models.AuditResult) {
		if prev == nil {
			return
		}
		before := analysis.OverallScore(prev.Scores)
		after := analysis.OverallScore(r.Scores)
		if before-after < s.cfg.ScoreDropThreshold {
			return
		}
		drops = append(drops, s.alert(models.AlertScoreDrop, &t, models.ScoreDrop{
			Previous: before,
			Current:  after,
			Delta:    after - before,
		}))
	})
	if err != nil {
		return err
	}

	var failed int
	for _, a := range drops {
		if err := s.deps.Notifier.Notify(ctx, a); err != nil {
			s.logger.Error("sending scoreDrop alert", "target_id", a.TargetID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d scoreDrop alerts could not be delivered", failed)
	}
	return nil
}

// dailyDigest summarises the history ring in a single alert.
func (s *Scheduler) dailyDigest(ctx context.Context) error {
	h := s.deps.History
	var entries []models.DigestEntry
	for _, id := range h.Targets() {
		latest, ok := h.Latest(id)
		if !ok {
			continue
		}
		results := h.Entries(id)
		var sum float64
		for _, r := range results {
			sum += analysis.OverallScore(r.Scores)
		}
		entries = append(entries, models.DigestEntry{
			TargetID:        id,
			Audits:          len(results),
			AverageOverall:  math.Round(sum/float64(len(results))*10) / 10,
			LatestTimestamp: latest.Timestamp,
			Opportunities:   latest.Opportunities,
		})
	}
	if len(entries) == 0 {
		s.logger.Info("digest skipped, no audits in history")
		return nil
	}
	if err := s.deps.Notifier.Notify(ctx, s.alert(models.AlertDigest, nil, entries)); err != nil {
		return fmt.Errorf("sending digest alert: %w", err)
	}
	return nil
}

// auditAll runs the auditor over every target sequentially. onResult sees
// each successful result together with the target's previous stored result.
func (s *Scheduler) auditAll(ctx context.Context, opts audit.Options, onResult func(models.Target, models.AuditResult, *models.AuditResult)) error {
	targets, err := s.deps.Targets.Targets(ctx)
	if err != nil {
		return fmt.Errorf("listing targets: %w", err)
	}

	var ok, failed int
	for _, t := range targets {
		var prev *models.AuditResult
		if recent, err := s.deps.Results.List(ctx, store.Filter{TargetID: t.ID, Limit: 1}); err != nil {
			s.logger.Warn("reading previous result", "target_id", t.ID, "error", err)
		} else if len(recent) == 1 {
			prev = &recent[0]
		}

		out := s.deps.Auditor.Run(ctx, t, opts)
		if !out.Success {
			failed++
			s.logger.Warn("audit failed", "target_id", t.ID, "error", out.Error)
			continue
		}
		ok++
		s.deps.History.Add(*out.Result)
		onResult(t, *out.Result, prev)
	}

	s.logger.Info("audit pass complete", "targets", len(targets), "succeeded", ok, "failed", failed)
	return nil
}
