// Package models contains shared data models used across the SiteWatch codebase.
package models

// Target is a monitored website or application and its client association.
// Identity is ID; a target is never mutated once it has been audited.
type Target struct {
	ID       string `json:"id"        yaml:"id"`
	Name     string `json:"name"      yaml:"name"`
	URL      string `json:"url"       yaml:"url"`
	ClientID string `json:"clientId"  yaml:"client_id"`
	Type     string `json:"type"      yaml:"type"`
}

// TargetSource tells where a registry entry came from.
type TargetSource string

const (
	SourceStatic  TargetSource = "static"
	SourceOverlay TargetSource = "overlay"
)

// RegisteredTarget is a Target as listed by the registry.
type RegisteredTarget struct {
	Target
	Source TargetSource `json:"source"`
}
