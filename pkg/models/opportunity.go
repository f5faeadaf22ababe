package models

// Opportunity is a service offering raised when a metric falls below its
// threshold.
type Opportunity struct {
	Metric   Metric   `json:"metric"`
	Label    string   `json:"label"`
	CostMin  int      `json:"costMin"`
	CostMax  int      `json:"costMax"`
	Priority Priority `json:"priority"`
}

// OpportunityCatalog is ordered; audit results list labels in this order.
// bestPractices deliberately has no entry.
var OpportunityCatalog = []Opportunity{
	{Metric: Performance, Label: "Speed Optimization Service", CostMin: 500, CostMax: 2000, Priority: PriorityHigh},
	{Metric: Accessibility, Label: "Accessibility Compliance Package", CostMin: 800, CostMax: 3000, Priority: PriorityHigh},
	{Metric: SEO, Label: "SEO Enhancement Package", CostMin: 600, CostMax: 2500, Priority: PriorityMedium},
}

// OpportunityByLabel looks up a catalog entry by its label.
func OpportunityByLabel(label string) (Opportunity, bool) {
	for _, o := range OpportunityCatalog {
		if o.Label == label {
			return o, true
		}
	}
	return Opportunity{}, false
}
