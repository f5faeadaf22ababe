package analysis

import (
	"math"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

type benchmarkPoint struct {
	score      float64
	percentile float64
}

// benchmarks map scores to industry percentiles. Points are sorted by score.
var benchmarks = map[models.Metric][]benchmarkPoint{
	models.Performance: {
		{0, 1}, {25, 10}, {50, 30}, {70, 55}, {85, 75}, {95, 90}, {100, 99},
	},
	models.Accessibility: {
		{0, 1}, {50, 5}, {70, 20}, {85, 50}, {95, 80}, {100, 99},
	},
	models.SEO: {
		{0, 1}, {50, 5}, {75, 20}, {90, 50}, {97, 80}, {100, 99},
	},
	models.BestPractices: {
		{0, 1}, {50, 10}, {75, 35}, {90, 65}, {100, 99},
	},
}

// Percentile interpolates score linearly over the metric's benchmark table
// and clamps to [1,99].
func Percentile(m models.Metric, score float64) int {
	pts, ok := benchmarks[m]
	if !ok || len(pts) == 0 {
		return clampPercentile(score)
	}
	if score <= pts[0].score {
		return clampPercentile(pts[0].percentile)
	}
	for i := 1; i < len(pts); i++ {
		lo, hi := pts[i-1], pts[i]
		if score <= hi.score {
			frac := (score - lo.score) / (hi.score - lo.score)
			return clampPercentile(lo.percentile + frac*(hi.percentile-lo.percentile))
		}
	}
	return clampPercentile(pts[len(pts)-1].percentile)
}

func clampPercentile(p float64) int {
	return int(math.Max(1, math.Min(99, math.Round(p))))
}
