package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"when": func(ms int64) string {
		return time.UnixMilli(ms).UTC().Format(time.RFC1123)
	},
	"deref": func(v any) any {
		switch p := v.(type) {
		case *int:
			if p != nil {
				return *p
			}
		case *int64:
			if p != nil {
				return *p
			}
		}
		return "n/a"
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Site audit: {{.TargetName}}</title>
</head>
<body>
<h1>{{if .TargetName}}{{.TargetName}}{{else}}{{.TargetID}}{{end}}</h1>
<p>{{.URL}} &middot; audited {{when .Timestamp}}</p>
<h2>Scores</h2>
<table>
<tr><th>Performance</th><td>{{printf "%.0f" .Scores.Performance}}</td></tr>
<tr><th>Accessibility</th><td>{{printf "%.0f" .Scores.Accessibility}}</td></tr>
<tr><th>Best practices</th><td>{{printf "%.0f" .Scores.BestPractices}}</td></tr>
<tr><th>SEO</th><td>{{printf "%.0f" .Scores.SEO}}</td></tr>
</table>
<h2>Availability</h2>
<p>{{.Uptime.Status}} (status {{deref .Uptime.StatusCode}}, {{deref .Uptime.Latency}} ms){{if .Uptime.Error}}: {{.Uptime.Error}}{{end}}</p>
{{if .Opportunities}}<h2>Opportunities</h2>
<ul>{{range .Opportunities}}<li>{{.}}</li>{{end}}</ul>
{{end}}{{if .ScreenshotRef}}<p>Screenshot: {{.ScreenshotRef}}</p>{{end}}
</body>
</html>
`))

var rawTmpl = template.Must(template.New("raw").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.ID}}</title></head>
<body><pre>{{.JSON}}</pre></body>
</html>
`))

// renderBody produces the human-readable part of an artifact; the marker is
// appended after it.
func renderBody(result models.AuditResult, format string) ([]byte, error) {
	var buf bytes.Buffer
	if format == "html" {
		if err := reportTmpl.Execute(&buf, result); err != nil {
			return nil, fmt.Errorf("render report: %w", err)
		}
		return buf.Bytes(), nil
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	if err := rawTmpl.Execute(&buf, struct {
		ID   string
		JSON string
	}{result.TargetID, string(pretty)}); err != nil {
		return nil, fmt.Errorf("render raw report: %w", err)
	}
	return buf.Bytes(), nil
}
