package models

import "time"

// AlertType classifies an alert payload handed to the notifier.
type AlertType string

const (
	AlertDowntime   AlertType = "downtime"
	AlertPainPoints AlertType = "painpoints"
	AlertScoreDrop  AlertType = "scoreDrop"
	AlertDigest     AlertType = "digest"
)

// Alert is the typed payload emitted by the scheduler.
type Alert struct {
	ID         string    `json:"id"`
	Type       AlertType `json:"type"`
	TargetID   string    `json:"targetId,omitempty"`
	TargetName string    `json:"targetName,omitempty"`
	Details    any       `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PainPoint is one target's newly detected opportunities in a batched alert.
type PainPoint struct {
	TargetID      string   `json:"targetId"`
	TargetName    string   `json:"targetName"`
	URL           string   `json:"url"`
	Opportunities []string `json:"opportunities"`
}

// ScoreDrop describes a regression between two consecutive audits.
type ScoreDrop struct {
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Delta    float64 `json:"delta"`
}

// DigestEntry summarises one target's recent audit history.
type DigestEntry struct {
	TargetID        string   `json:"targetId"`
	Audits          int      `json:"audits"`
	AverageOverall  float64  `json:"averageOverall"`
	LatestTimestamp int64    `json:"latestTimestamp"`
	Opportunities   []string `json:"opportunities"`
}
