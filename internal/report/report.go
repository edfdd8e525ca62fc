package report

import (
	"bytes"
	"text/template"
	"time"
)

var reportTemplate = template.Must(template.New("report").Parse(`==========================================
EMAIL CAMPAIGN REPORT
==========================================
Campaign Date: {{.Date}}
Event: {{.EventName}}

Total profiles: {{.Stats.Total}}
Valid emails: {{.Stats.Valid}}
Invalid emails: {{.Stats.Invalid}}
Unsubscribed: {{.Stats.Unsubscribed}}

Successfully generated: {{.Stats.Generated}}
Successfully sent: {{.Stats.Sent}}
Failed: {{.Stats.Failed}}

Success rate: {{printf "%.2f" .SuccessRate}}%
Dry run mode: {{.DryRun}}

Total execution time: {{printf "%.2f" .DurationSeconds}} seconds
Average time per email: {{printf "%.2f" .AveragePerEmail}} seconds
==========================================
`))

type reportData struct {
	Date            string
	EventName       string
	Stats           Stats
	SuccessRate     float64
	DryRun          bool
	DurationSeconds float64
	AveragePerEmail float64
}

// renderReport produces the human-readable campaign summary
func renderReport(run *RunInfo, stats Stats, now time.Time) string {
	data := reportData{
		Date:            now.Format("2006-01-02 15:04:05"),
		EventName:       run.EventName,
		Stats:           stats,
		DryRun:          run.DryRun,
		DurationSeconds: stats.Duration.Seconds(),
	}
	if stats.Total > 0 {
		data.SuccessRate = float64(stats.Sent) / float64(stats.Total) * 100
	}
	if stats.Valid > 0 {
		data.AveragePerEmail = stats.Duration.Seconds() / float64(stats.Valid)
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "failed to render report: " + err.Error()
	}
	return buf.String()
}
