// Package recommend turns scored deficiencies into a prioritized, costed
// remediation plan.
package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/kiranshivaraju/sitewatch/internal/analysis"
	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

// Package names, smallest first. Each includes everything in the ones before.
const (
	PackageEmergency  = "Emergency"
	PackageFoundation = "Foundation"
	PackageComplete   = "Complete"
)

// Generate builds the plan for one audit. Metrics missing from scores
// produce nothing. opportunities are the labels recorded on the audit.
func Generate(scores models.MetricScores, opportunities []string, a models.Analysis) models.Plan {
	recs := []models.Recommendation{}
	wins := []models.QuickWin{}
	covered := make(map[models.Metric]bool)

	for _, m := range models.Metrics {
		score, ok := scores[m]
		if !ok {
			continue
		}
		band := analysis.Bands[m]
		if score >= band.Good {
			continue
		}

		tier := Tier(score, band)
		b := bodies[m][tier]
		impact := impactFor(m, tier)

		recs = append(recs, models.Recommendation{
			ID:            fmt.Sprintf("%s-%s", m, tier),
			Priority:      tier,
			Category:      string(m),
			Title:         b.title,
			Description:   describe(b.description, a.Metrics[m]),
			Impact:        impact,
			Cost:          b.cost,
			ROI:           estimateROI(score, impact, b.cost.Max),
			ActionItems:   append([]string(nil), b.actions...),
			TimelineWeeks: b.timelineWeeks,
			CurrentScore:  score,
			TargetScore:   band.Good,
		})
		covered[m] = true
		wins = append(wins, quickWins[m]...)
	}

	for _, label := range opportunities {
		o, ok := models.OpportunityByLabel(label)
		if !ok || covered[o.Metric] {
			continue
		}
		covered[o.Metric] = true
		score := scores[o.Metric]
		cost := models.CostRange{Min: o.CostMin, Max: o.CostMax}
		impact := impactFor(o.Metric, models.PriorityLow)
		recs = append(recs, models.Recommendation{
			ID:            fmt.Sprintf("opportunity-%s", o.Metric),
			Priority:      models.PriorityLow,
			Category:      string(o.Metric),
			Title:         o.Label,
			Description:   fmt.Sprintf("%s is scoring below the client threshold.", o.Metric),
			Impact:        impact,
			Cost:          cost,
			ROI:           estimateROI(score, impact, cost.Max),
			ActionItems:   []string{},
			TimelineWeeks: 2,
			CurrentScore:  score,
			TargetScore:   analysis.Bands[o.Metric].Good,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})

	return models.Plan{
		Recommendations: recs,
		Packages:        buildPackages(recs),
		QuickWins:       wins,
	}
}

// Tier maps a score below the good band to a priority. The boundaries
// match analysis.StatusOf.
func Tier(score float64, band analysis.Band) models.Priority {
	switch analysis.StatusOf(score, band) {
	case models.StatusCritical:
		return models.PriorityCritical
	case models.StatusWarning:
		return models.PriorityHigh
	default:
		return models.PriorityMedium
	}
}

func impactFor(m models.Metric, tier models.Priority) string {
	switch m {
	case models.Performance:
		return ImpactConversion
	case models.SEO:
		if tier == models.PriorityCritical {
			return ImpactTraffic
		}
		return ImpactSEO
	default:
		return ImpactRetention
	}
}

func estimateROI(score float64, impact string, costMax int) models.ROI {
	monthly := (100 - score) * impactMultipliers[impact] * 100
	monthly = math.Round(monthly*100) / 100
	return models.ROI{MonthlyEstimate: monthly, PaybackPeriod: Payback(costMax, monthly)}
}

// Payback renders ceil(costMax / (monthly*10)) as a month count.
func Payback(costMax int, monthly float64) string {
	if costMax == 0 || monthly <= 0 {
		return "Immediate"
	}
	months := int(math.Ceil(float64(costMax) / (monthly * 10)))
	if months <= 1 {
		return "1 month"
	}
	return fmt.Sprintf("%d months", months)
}

func describe(base string, ma models.MetricAnalysis) string {
	if ma.Grade == "" {
		return base
	}
	return fmt.Sprintf("%s Current grade %s, %s percentile.", base, ma.Grade, ordinal(ma.Percentile))
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

func buildPackages(recs []models.Recommendation) []models.Package {
	include := []map[models.Priority]bool{
		{models.PriorityCritical: true},
		{models.PriorityCritical: true, models.PriorityHigh: true},
		nil,
	}
	names := []string{PackageEmergency, PackageFoundation, PackageComplete}

	pkgs := make([]models.Package, 0, len(names))
	for i, name := range names {
		p := models.Package{Name: name, RecommendationIDs: []string{}}
		for _, r := range recs {
			if include[i] != nil && !include[i][r.Priority] {
				continue
			}
			p.RecommendationIDs = append(p.RecommendationIDs, r.ID)
			p.CostMin += r.Cost.Min
			p.CostMax += r.Cost.Max
			p.TimelineWeeks += r.TimelineWeeks
		}
		pkgs = append(pkgs, p)
	}
	return pkgs
}
