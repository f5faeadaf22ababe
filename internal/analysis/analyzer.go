// Package analysis grades audit scores against fixed bands, industry
// benchmarks and the target's own history. Everything here is pure.
package analysis

import (
	"math"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

const (
	trendWindow    = 5
	trendThreshold = 2.0

	riskPerCritical = 30
	riskPerWarning  = 15
)

// Analyze derives the graded view of scores. Metrics missing from scores
// are left out of every aggregate. history holds earlier records of the
// same target in ascending timestamp order; it must not include the record
// being analysed.
func Analyze(scores models.MetricScores, history []models.AuditResult) models.Analysis {
	a := models.Analysis{
		Metrics:       make(map[models.Metric]models.MetricAnalysis, len(scores)),
		OverallStatus: models.StatusGood,
	}

	var (
		weighted, weights float64
		critical, warning int
		opportunity       float64
	)

	// Iterate in fixed metric order so float sums are reproducible.
	for _, m := range models.Metrics {
		score, ok := scores[m]
		if !ok {
			continue
		}
		band := Bands[m]
		w := Weights[m]

		status := StatusOf(score, band)
		switch status {
		case models.StatusCritical:
			critical++
		case models.StatusWarning:
			warning++
		}

		a.Metrics[m] = models.MetricAnalysis{
			Score:      score,
			Status:     status,
			Grade:      MetricGrade(score, band),
			Percentile: Percentile(m, score),
			Trend:      Trend(score, historyValues(history, m)),
			Weight:     w,
		}

		weighted += score * w
		weights += w
		opportunity += math.Max(0, band.Good-score) * w
	}

	if weights > 0 {
		a.OverallScore = round1(weighted / weights)
	}
	a.OverallGrade = OverallGrade(a.OverallScore)

	switch {
	case critical > 0:
		a.OverallStatus = models.StatusCritical
	case warning > 0:
		a.OverallStatus = models.StatusWarning
	}
	a.RiskScore = riskPerCritical*critical + riskPerWarning*warning
	a.OpportunityScore = round1(opportunity)
	return a
}

// Trend compares current to the mean of the most recent historical values.
func Trend(current float64, history []float64) models.Trend {
	if len(history) == 0 {
		return models.TrendStable
	}
	if len(history) > trendWindow {
		history = history[len(history)-trendWindow:]
	}
	var sum float64
	for _, v := range history {
		sum += v
	}
	delta := current - sum/float64(len(history))
	switch {
	case delta > trendThreshold:
		return models.TrendImproving
	case delta < -trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// OverallScore is the weighted overall score of a full score set.
func OverallScore(s models.Scores) float64 {
	return Analyze(s.Map(), nil).OverallScore
}

func historyValues(history []models.AuditResult, m models.Metric) []float64 {
	out := make([]float64, 0, len(history))
	for _, r := range history {
		out = append(out, r.Scores.Get(m))
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
