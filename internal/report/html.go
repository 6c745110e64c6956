package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"resumescan/internal/errors"
	"resumescan/internal/types"
)

// reportTemplate renders a standalone printable report page. Users export
// to PDF via the browser's print dialog, so the styling is inline and
// print-friendly.
const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Resume Scan Report - {{.FileName}}</title>
<style>
  body { font-family: Georgia, serif; margin: 2rem auto; max-width: 48rem; color: #1a1a1a; }
  h1 { font-size: 1.6rem; border-bottom: 2px solid #1a1a1a; padding-bottom: .4rem; }
  h2 { font-size: 1.2rem; margin-top: 1.6rem; }
  .meta { color: #555; font-size: .9rem; }
  .score { font-size: 2.4rem; font-weight: bold; }
  .fallback-note { background: #fff3cd; border: 1px solid #ffe69c; padding: .6rem 1rem; margin: 1rem 0; }
  table { border-collapse: collapse; width: 100%; margin-top: .6rem; }
  th, td { text-align: left; border: 1px solid #ccc; padding: .4rem .6rem; vertical-align: top; }
  th { background: #f2f2f2; }
  ul { margin: .4rem 0 .4rem 1.2rem; padding: 0; }
  .tag { display: inline-block; background: #eef; border-radius: .3rem; padding: .1rem .5rem; margin: .1rem; font-size: .85rem; }
  .tag.missing { background: #fee; }
  @media print { body { margin: 0; } }
</style>
</head>
<body>
<h1>Resume Scan Report</h1>
<p class="meta">
  File: {{.FileName}} ({{.FileSizeLabel}})<br>
  Scanned: {{.ScanDateLabel}}<br>
  Scan ID: {{.ScanID}}
</p>

{{if .Analysis.Fallback}}
<div class="fallback-note">
  Automated analysis was unavailable for this scan; the assessment below is a
  general one based on common resume patterns.
</div>
{{end}}

<h2>Overall Score</h2>
<p class="score">{{.Analysis.Score}} / 100</p>
<p>{{.Analysis.Summary}}</p>

<h2>Sections</h2>
<table>
  <tr><th>Section</th><th>Present</th><th>Quality</th><th>Score</th><th>Feedback</th></tr>
  {{range .Sections}}
  <tr>
    <td>{{.Name}}</td>
    <td>{{if .Present}}Yes{{else}}No{{end}}</td>
    <td>{{.Quality}}</td>
    <td>{{.Score}}</td>
    <td>{{.Feedback}}</td>
  </tr>
  {{end}}
</table>

<h2>Keywords</h2>
<p>Matching:
  {{range .Analysis.Keywords.Matching}}<span class="tag">{{.}}</span>{{else}}<em>none</em>{{end}}
</p>
<p>Missing:
  {{range .Analysis.Keywords.Missing}}<span class="tag missing">{{.}}</span>{{else}}<em>none</em>{{end}}
</p>

<h2>Formatting</h2>
<p>ATS compatible: {{if .Analysis.Formatting.ATSCompatible}}Yes{{else}}No{{end}}</p>
{{if .Analysis.Formatting.Issues}}
<ul>{{range .Analysis.Formatting.Issues}}<li>{{.}}</li>{{end}}</ul>
{{end}}

<h2>Suggestions</h2>
<ul>{{range .Analysis.Suggestions}}<li>{{.}}</li>{{else}}<li><em>None</em></li>{{end}}</ul>

<h2>Action Items</h2>
<ul>{{range .Analysis.ActionItems}}<li>{{.}}</li>{{else}}<li><em>None</em></li>{{end}}</ul>
</body>
</html>
`

var tmpl = template.Must(template.New("report").Parse(reportTemplate))

type sectionRow struct {
	Name string
	types.SectionFeedback
}

type reportData struct {
	ScanID        string
	FileName      string
	FileSizeLabel string
	ScanDateLabel string
	Analysis      types.AnalysisResult
	Sections      []sectionRow
}

// RenderHTML renders a scan as a standalone printable HTML report
func RenderHTML(scan *types.ScanRecord) ([]byte, error) {
	analysis, err := scan.Result()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat,
			"Stored scan results could not be decoded", err)
	}

	sections := make([]sectionRow, 0, len(types.SectionNames))
	for _, name := range types.SectionNames {
		sections = append(sections, sectionRow{Name: name, SectionFeedback: analysis.Sections[name]})
	}

	data := reportData{
		ScanID:        scan.ID,
		FileName:      scan.FileName,
		FileSizeLabel: formatFileSize(scan.FileSize),
		ScanDateLabel: scan.ScanDate.Format(time.RFC1123),
		Analysis:      analysis,
		Sections:      sections,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "Failed to render report", err)
	}

	return buf.Bytes(), nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
