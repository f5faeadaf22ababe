package analysis

import "github.com/kiranshivaraju/sitewatch/pkg/models"

// Band holds the per-metric status boundaries. A score at or below Critical
// is critical, below Warning is warning, otherwise good; Good is the target
// score used for grading and opportunity sizing.
type Band struct {
	Critical float64
	Warning  float64
	Good     float64
}

// Bands are the fixed per-metric boundaries.
var Bands = map[models.Metric]Band{
	models.Performance:   {Critical: 50, Warning: 75, Good: 90},
	models.Accessibility: {Critical: 60, Warning: 80, Good: 90},
	models.SEO:           {Critical: 60, Warning: 80, Good: 90},
	models.BestPractices: {Critical: 60, Warning: 75, Good: 85},
}

// Weights are the metric importance weights; they sum to 1.
var Weights = map[models.Metric]float64{
	models.Performance:   0.35,
	models.Accessibility: 0.25,
	models.SEO:           0.25,
	models.BestPractices: 0.15,
}

// StatusOf classifies score against band b. A score exactly on the
// critical boundary is critical; anything above it is not.
func StatusOf(score float64, b Band) models.Status {
	switch {
	case score <= b.Critical:
		return models.StatusCritical
	case score < b.Warning:
		return models.StatusWarning
	default:
		return models.StatusGood
	}
}

// MetricGrade maps a metric score to a letter using its band.
func MetricGrade(score float64, b Band) string {
	switch {
	case score >= b.Good+5:
		return "A+"
	case score >= b.Good:
		return "A"
	case score >= (b.Warning+b.Good)/2:
		return "B"
	case score >= b.Warning:
		return "C"
	case score >= b.Critical:
		return "D"
	default:
		return "F"
	}
}

// OverallGrade maps an overall score to a letter.
func OverallGrade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
