package models

// Status is the health bucket of a metric or of a whole analysis.
type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Trend compares a metric with its recent history.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// MetricAnalysis is the graded view of one metric.
type MetricAnalysis struct {
	Score      float64 `json:"score"`
	Status     Status  `json:"status"`
	Grade      string  `json:"grade"`
	Percentile int     `json:"percentile"`
	Trend      Trend   `json:"trend"`
	Weight     float64 `json:"weight"`
}

// Analysis is derived on every report request and never persisted.
type Analysis struct {
	Metrics          map[Metric]MetricAnalysis `json:"metrics"`
	OverallScore     float64                   `json:"overallScore"`
	OverallGrade     string                    `json:"overallGrade"`
	OverallStatus    Status                    `json:"overallStatus"`
	RiskScore        int                       `json:"riskScore"`
	OpportunityScore float64                   `json:"opportunityScore"`
}
