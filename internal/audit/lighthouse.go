package audit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// lighthouseReport is the subset of a Lighthouse JSON report we read. The
// CLI emits it at the top level; PageSpeed nests it under lighthouseResult.
type lighthouseReport struct {
	Categories map[string]lighthouseCategory `json:"categories"`
	Audits     map[string]lighthouseAudit    `json:"audits"`
}

type lighthouseCategory struct {
	// Score is null when Lighthouse could not compute the category.
	Score *float64 `json:"score"`
}

type lighthouseAudit struct {
	Details struct {
		Data string `json:"data"`
	} `json:"details"`
}

var categoryMetrics = map[string]models.Metric{
	"performance":    models.Performance,
	"accessibility":  models.Accessibility,
	"best-practices": models.BestPractices,
	"seo":            models.SEO,
}

// scores returns the native 0..1 category scores. A null score counts as 0.
func (r lighthouseReport) scores() (models.Scores, error) {
	if len(r.Categories) == 0 {
		return models.Scores{}, fmt.Errorf("%w: no categories in report", ErrInvalidReport)
	}
	var s models.Scores
	for key, metric := range categoryMetrics {
		c, ok := r.Categories[key]
		if !ok {
			return models.Scores{}, fmt.Errorf("%w: missing category %q", ErrInvalidReport, key)
		}
		var v float64
		if c.Score != nil {
			v = *c.Score
		}
		switch metric {
		case models.Performance:
			s.Performance = v
		case models.Accessibility:
			s.Accessibility = v
		case models.BestPractices:
			s.BestPractices = v
		case models.SEO:
			s.SEO = v
		}
	}
	return s, nil
}

// finalScreenshot decodes the base64 data URI of the final-screenshot audit.
func (r lighthouseReport) finalScreenshot() ([]byte, error) {
	a, ok := r.Audits["final-screenshot"]
	if !ok || a.Details.Data == "" {
		return nil, fmt.Errorf("%w: no final screenshot", ErrInvalidReport)
	}
	data := a.Details.Data
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+1:]
	}
	img, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode screenshot: %v", ErrInvalidReport, err)
	}
	return img, nil
}

func decodeLighthouse(raw []byte) (lighthouseReport, error) {
	var r lighthouseReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return lighthouseReport{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return r, nil
}
