package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/opslens/opslens/internal/common"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Report.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #36648b; padding-bottom: 0.2em; }
h2 { color: #36648b; margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4em 0.6em; text-align: left; }
th { background: #eef3f8; }
.counts span { display: inline-block; margin-right: 1.5em; font-size: 1.1em; }
.impact-High { color: #a00; font-weight: bold; }
.impact-Medium { color: #b60; }
.badge { background: #eef3f8; border-radius: 3px; padding: 0 0.3em; font-size: 0.85em; }
pre { background: #f6f6f6; padding: 0.8em; white-space: pre-wrap; }
footer { margin-top: 2em; color: #888; font-size: 0.85em; }
</style>
</head>
<body>
<h1>{{.Report.Title}}</h1>
<div class="counts">
<span><strong>{{.Report.Summary.Total}}</strong> tickets</span>
<span><strong>{{.Report.Summary.Open}}</strong> open</span>
{{range $kind, $count := .Report.Summary.ByType}}<span>{{$count}} {{$kind}}</span>{{end}}
</div>
{{if .Report.AIText}}<h2>Summary</h2><pre>{{.Report.AIText}}</pre>{{end}}
{{if .Report.Patterns}}
<h2>Recurring patterns</h2>
<table>
<tr><th>Pattern</th><th>Occurrences</th><th>First seen</th><th>Last seen</th><th>Impact</th><th>Tickets</th></tr>
{{range .Report.Patterns}}
<tr>
<td>{{.Label}}</td>
<td>{{.OccurrenceCount}}</td>
<td>{{.FirstSeen}}</td>
<td>{{.LastSeen}}</td>
<td class="impact-{{.EstimatedImpact}}">{{.EstimatedImpact}}</td>
<td>{{range .TicketNumbers}}<span class="badge">{{.}}</span> {{end}}</td>
</tr>
{{if .SuggestedResolution}}<tr><td colspan="6"><pre>{{.SuggestedResolution}}</pre></td></tr>{{end}}
{{end}}
</table>
{{end}}
{{if .Report.Gaps}}
<h2>Knowledge gaps</h2>
<table>
<tr><th>Type</th><th>Topic</th><th>Suggested title</th><th>Tickets</th></tr>
{{range .Report.Gaps}}
<tr>
<td>{{.Type}}</td>
<td>{{.Topic}}</td>
<td>{{.SuggestedTitle}}</td>
<td>{{range .RelatedTickets}}<span class="badge">{{.}}</span> {{end}}</td>
</tr>
{{end}}
</table>
{{end}}
{{if .Report.Roles}}
<h2>Tickets by role</h2>
<table>
<tr><th>Role</th><th>Number</th><th>Opened</th><th>Description</th><th>State</th></tr>
{{range .Report.Roles}}
<tr><td>{{.Bucket}}</td><td>{{.Number}}</td><td>{{.OpenedAt}}</td><td>{{.ShortDescription}}</td><td>{{.State}}</td></tr>
{{end}}
</table>
{{end}}
{{if .Report.Timeline}}
<h2>Timeline</h2>
<table>
<tr><th>Date</th><th>Number</th><th>Description</th><th>State</th></tr>
{{range .Report.Timeline}}
<tr><td>{{.Date}}</td><td>{{.Number}}</td><td>{{.Description}}</td><td>{{.State}}</td></tr>
{{end}}
</table>
{{end}}
<footer>Generated {{.Generated}}{{if .Report.UsedAI}} with AI assistance{{else}} with basic detection{{end}}.</footer>
</body>
</html>
`))

// RenderHTML writes the report document to w.
func RenderHTML(w io.Writer, report Report) error {
	return reportTemplate.Execute(w, struct {
		Report    Report
		Generated string
	}{Report: report, Generated: time.Now().Format("2006-01-02 15:04")})
}

// WriteHTML renders the report to a file.
func WriteHTML(path string, report Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer file.Close()
	if err := RenderHTML(file, report); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	common.Logger().Info("report: html written", "path", path)
	return nil
}
