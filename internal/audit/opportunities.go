package audit

import (
	"math"

	"github.com/kiranshivaraju/sitewatch/internal/config"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// Opportunities returns the catalog labels whose metric scored below its
// threshold, in catalog order.
func Opportunities(scores models.Scores, th config.Thresholds) []string {
	out := []string{}
	for _, o := range models.OpportunityCatalog {
		if scores.Get(o.Metric) < threshold(th, o.Metric) {
			out = append(out, o.Label)
		}
	}
	return out
}

func threshold(th config.Thresholds, m models.Metric) float64 {
	switch m {
	case models.Performance:
		return th.Performance
	case models.Accessibility:
		return th.Accessibility
	case models.BestPractices:
		return th.BestPractices
	case models.SEO:
		return th.SEO
	}
	return 0
}

// scale converts native 0..1 scores to rounded integers in [0,100].
func scale(native models.Scores) models.Scores {
	conv := func(v float64) float64 {
		return math.Max(0, math.Min(100, math.Round(v*100)))
	}
	return models.Scores{
		Performance:   conv(native.Performance),
		Accessibility: conv(native.Accessibility),
		BestPractices: conv(native.BestPractices),
		SEO:           conv(native.SEO),
	}
}
