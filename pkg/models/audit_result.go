package models

// Metric names one audit category.
type Metric string

const (
	Performance   Metric = "performance"
	Accessibility Metric = "accessibility"
	BestPractices Metric = "bestPractices"
	SEO           Metric = "seo"
)

// Metrics lists every audit category in report order.
var Metrics = []Metric{Performance, Accessibility, BestPractices, SEO}

// Scores holds the four category scores of one audit, each in [0,100].
type Scores struct {
	Performance   float64 `json:"performance"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"bestPractices"`
	SEO           float64 `json:"seo"`
}

// MetricScores is a sparse metric → score view. Metrics missing from the
// map are treated as absent, not as zero.
type MetricScores map[Metric]float64

// Map returns all four scores keyed by metric.
func (s Scores) Map() MetricScores {
	return MetricScores{
		Performance:   s.Performance,
		Accessibility: s.Accessibility,
		BestPractices: s.BestPractices,
		SEO:           s.SEO,
	}
}

// Get returns the score for m.
func (s Scores) Get(m Metric) float64 {
	switch m {
	case Performance:
		return s.Performance
	case Accessibility:
		return s.Accessibility
	case BestPractices:
		return s.BestPractices
	case SEO:
		return s.SEO
	}
	return 0
}

// UptimeStatus is the classification of a single probe.
type UptimeStatus string

const (
	StatusUp   UptimeStatus = "UP"
	StatusDown UptimeStatus = "DOWN"
)

// Uptime is the outcome of one HEAD probe. StatusCode is nil when no
// response was received.
type Uptime struct {
	Status     UptimeStatus `json:"status"`
	StatusCode *int         `json:"statusCode,omitempty"`
	Latency    *int64       `json:"latency,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// AuditResult is one completed audit run. Records are append-only; the
// records of a target are totally ordered by Timestamp (epoch millis).
type AuditResult struct {
	TargetID      string   `json:"targetId"`
	TargetName    string   `json:"targetName,omitempty"`
	URL           string   `json:"url,omitempty"`
	ClientID      string   `json:"clientId"`
	Timestamp     int64    `json:"timestamp"`
	Scores        Scores   `json:"scores"`
	Uptime        Uptime   `json:"uptime"`
	Opportunities []string `json:"opportunities"`
	ScreenshotRef string   `json:"screenshotRef"`
}
