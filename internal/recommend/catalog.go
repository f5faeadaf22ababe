package recommend

import "github.com/kiranshivaraju/sitewatch/pkg/models"

// Impact categories and their ROI multipliers.
const (
	ImpactConversion = "conversion"
	ImpactTraffic    = "traffic"
	ImpactRetention  = "retention"
	ImpactSEO        = "seo"
)

var impactMultipliers = map[string]float64{
	ImpactConversion: 0.07,
	ImpactTraffic:    0.25,
	ImpactRetention:  0.15,
	ImpactSEO:        0.20,
}

type body struct {
	title         string
	description   string
	actions       []string
	cost          models.CostRange
	timelineWeeks int
}

// bodies holds the remediation text per metric and tier.
var bodies = map[models.Metric]map[models.Priority]body{
	models.Performance: {
		models.PriorityCritical: {
			title:         "Emergency performance recovery",
			description:   "Pages load slowly enough to lose most mobile visitors before first render.",
			actions:       []string{"Audit and remove render-blocking scripts", "Move static assets to a CDN", "Introduce server-side caching", "Compress and resize hero images"},
			cost:          models.CostRange{Min: 2000, Max: 5000},
			timelineWeeks: 6,
		},
		models.PriorityHigh: {
			title:         "Performance optimization",
			description:   "Load times are noticeably behind competitors and hurt conversion.",
			actions:       []string{"Lazy-load below-the-fold media", "Split large JavaScript bundles", "Tune cache headers"},
			cost:          models.CostRange{Min: 1000, Max: 3000},
			timelineWeeks: 4,
		},
		models.PriorityMedium: {
			title:         "Performance fine-tuning",
			description:   "The site is reasonably fast with room to reach the top band.",
			actions:       []string{"Preload key requests", "Trim unused CSS"},
			cost:          models.CostRange{Min: 500, Max: 1500},
			timelineWeeks: 2,
		},
	},
	models.Accessibility: {
		models.PriorityCritical: {
			title:         "Accessibility compliance remediation",
			description:   "Significant barriers prevent assistive-technology users from using the site and create legal exposure.",
			actions:       []string{"Add text alternatives to all images", "Fix form labelling", "Restore keyboard navigation", "Correct colour contrast failures"},
			cost:          models.CostRange{Min: 2500, Max: 6000},
			timelineWeeks: 8,
		},
		models.PriorityHigh: {
			title:         "Accessibility improvements",
			description:   "Several WCAG criteria fail on key pages.",
			actions:       []string{"Add ARIA landmarks", "Fix heading order", "Improve focus indicators"},
			cost:          models.CostRange{Min: 1500, Max: 3500},
			timelineWeeks: 5,
		},
		models.PriorityMedium: {
			title:         "Accessibility polish",
			description:   "Minor issues remain before full compliance.",
			actions:       []string{"Review link text", "Add skip-to-content link"},
			cost:          models.CostRange{Min: 800, Max: 2000},
			timelineWeeks: 3,
		},
	},
	models.SEO: {
		models.PriorityCritical: {
			title:         "Search visibility rescue",
			description:   "Search engines cannot index important pages, cutting organic traffic.",
			actions:       []string{"Fix robots directives and sitemap", "Add unique titles and meta descriptions", "Repair broken canonical links"},
			cost:          models.CostRange{Min: 2000, Max: 4500},
			timelineWeeks: 6,
		},
		models.PriorityHigh: {
			title:         "SEO enhancement",
			description:   "On-page SEO gaps limit ranking for target keywords.",
			actions:       []string{"Add structured data", "Improve internal linking", "Optimise image alt text for keywords"},
			cost:          models.CostRange{Min: 1200, Max: 3000},
			timelineWeeks: 4,
		},
		models.PriorityMedium: {
			title:         "SEO refinement",
			description:   "Solid foundations with a few missed opportunities.",
			actions:       []string{"Refresh meta descriptions", "Add hreflang where relevant"},
			cost:          models.CostRange{Min: 600, Max: 1500},
			timelineWeeks: 2,
		},
	},
	models.BestPractices: {
		models.PriorityCritical: {
			title:         "Security and standards overhaul",
			description:   "Outdated libraries and insecure requests put visitors at risk.",
			actions:       []string{"Serve every resource over HTTPS", "Upgrade vulnerable JavaScript libraries", "Fix console errors"},
			cost:          models.CostRange{Min: 1000, Max: 2500},
			timelineWeeks: 3,
		},
		models.PriorityHigh: {
			title:         "Best-practice alignment",
			description:   "Several modern web standards are not followed.",
			actions:       []string{"Add a content security policy", "Replace deprecated APIs"},
			cost:          models.CostRange{Min: 600, Max: 1500},
			timelineWeeks: 2,
		},
		models.PriorityMedium: {
			title:         "Best-practice housekeeping",
			description:   "Small configuration fixes the site team can apply directly.",
			actions:       []string{"Set correct image aspect ratios", "Declare a charset early"},
			cost:          models.CostRange{Min: 0, Max: 0},
			timelineWeeks: 1,
		},
	},
}

// quickWins are zero-cost actions offered for any metric below its good band.
var quickWins = map[models.Metric][]models.QuickWin{
	models.Performance: {
		{Category: string(models.Performance), Title: "Enable text compression", Effort: "low", Impact: "high"},
		{Category: string(models.Performance), Title: "Add width and height to images", Effort: "low", Impact: "medium"},
	},
	models.Accessibility: {
		{Category: string(models.Accessibility), Title: "Set the page language attribute", Effort: "low", Impact: "medium"},
		{Category: string(models.Accessibility), Title: "Label icon-only buttons", Effort: "low", Impact: "high"},
	},
	models.SEO: {
		{Category: string(models.SEO), Title: "Add a meta description", Effort: "low", Impact: "high"},
		{Category: string(models.SEO), Title: "Submit the sitemap to search consoles", Effort: "low", Impact: "medium"},
	},
	models.BestPractices: {
		{Category: string(models.BestPractices), Title: "Remove console.log calls from production", Effort: "low", Impact: "low"},
	},
}
