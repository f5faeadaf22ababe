package models

// Priority ranks recommendations; lower rank sorts first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns the sort rank of p. Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// CostRange is a monetary estimate in whole currency units.
type CostRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ROI is the estimated return of acting on a recommendation.
type ROI struct {
	MonthlyEstimate float64 `json:"monthlyEstimate"`
	PaybackPeriod   string  `json:"paybackPeriod"`
}

// Recommendation is a prioritized remediation item derived per report.
type Recommendation struct {
	ID            string    `json:"id"`
	Priority      Priority  `json:"priority"`
	Category      string    `json:"category"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Impact        string    `json:"impact"`
	Cost          CostRange `json:"cost"`
	ROI           ROI       `json:"roi"`
	ActionItems   []string  `json:"actionItems"`
	TimelineWeeks int       `json:"timelineWeeks"`
	CurrentScore  float64   `json:"currentScore"`
	TargetScore   float64   `json:"targetScore"`
}

// Package is a cumulative bundle of recommendations.
type Package struct {
	Name              string   `json:"name"`
	RecommendationIDs []string `json:"recommendationIds"`
	CostMin           int      `json:"costMin"`
	CostMax           int      `json:"costMax"`
	TimelineWeeks     int      `json:"timelineWeeks"`
}

// QuickWin is a zero-cost action for a metric below its good band.
type QuickWin struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Effort   string `json:"effort"`
	Impact   string `json:"impact"`
}

// Plan is the full output of the recommendation generator.
type Plan struct {
	Recommendations []Recommendation `json:"recommendations"`
	Packages        []Package        `json:"packages"`
	QuickWins       []QuickWin       `json:"quickWins"`
}
