package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// RenderingError is raised when an artifact cannot be produced. The pipeline
// logs it and continues; a missing PDF never fails a job.
type RenderingError struct {
	Message string
	Err     error
}

func (e *RenderingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rendering failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("rendering failed: %s", e.Message)
}

func (e *RenderingError) Unwrap() error { return e.Err }

// PDFGenerator renders the analysis to HTML and shells out to an external
// HTML-to-PDF converter (weasyprint by default).
type PDFGenerator struct {
	converter string
	log       zerolog.Logger
}

// NewPDFGenerator creates a generator using the named converter binary.
func NewPDFGenerator(converter string) *PDFGenerator {
	if converter == "" {
		converter = "weasyprint"
	}
	return &PDFGenerator{
		converter: converter,
		log:       logger.WithComponent("render"),
	}
}

type pdfContext struct {
	Analysis   *models.Analysis
	Charts     map[int]chartRefs
	Disclaimer string
	RTL        bool
	Colors     map[string]string
}

type chartRefs struct {
	Bar    string
	Gauges []string
}

// Generate writes report.html and report.pdf under outputDir. Chart paths
// must be inside outputDir so the converter can resolve them relatively.
// Right-to-left languages switch the document direction.
func (g *PDFGenerator) Generate(ctx context.Context, analysis *models.Analysis, charts map[int]CategoryCharts, outputDir, language string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", &RenderingError{Message: "failed to create output dir", Err: err}
	}

	refs := make(map[int]chartRefs, len(charts))
	for idx, c := range charts {
		r := chartRefs{Bar: relativeTo(outputDir, c.Bar)}
		for _, gauge := range c.Gauges {
			r.Gauges = append(r.Gauges, relativeTo(outputDir, gauge))
		}
		refs[idx] = r
	}

	disclaimer := analysis.Disclaimer
	if disclaimer == "" {
		disclaimer = DefaultDisclaimer
	}

	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, pdfContext{
		Analysis:   analysis,
		Charts:     refs,
		Disclaimer: disclaimer,
		RTL:        rtlLanguage(language),
		Colors:     severityColor,
	})
	if err != nil {
		return "", &RenderingError{Message: "template rendering failed", Err: err}
	}

	htmlPath := filepath.Join(outputDir, "report.html")
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return "", &RenderingError{Message: "failed to write report HTML", Err: err}
	}

	pdfPath := filepath.Join(outputDir, "report.pdf")
	cmd := exec.CommandContext(ctx, g.converter, htmlPath, pdfPath)
	cmd.Dir = outputDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &RenderingError{
			Message: fmt.Sprintf("%s failed: %s", g.converter, bytes.TrimSpace(out)),
			Err:     err,
		}
	}

	g.log.Info().Str("path", pdfPath).Msg("PDF generated")
	return pdfPath, nil
}

func rtlLanguage(code string) bool {
	switch code {
	case "ur", "ar", "fa":
		return true
	}
	return false
}

func relativeTo(base, path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html dir="{{if .RTL}}rtl{{else}}ltr{{end}}">
<head>
<meta charset="utf-8">
<style>
  body { font-family: "Noto Sans", "Noto Nastaliq Urdu", sans-serif; color: #1f2937; margin: 32px; }
  h1 { font-size: 22px; border-bottom: 2px solid #e5e7eb; padding-bottom: 8px; }
  h2 { font-size: 16px; margin-top: 24px; }
  h3 { font-size: 14px; margin-top: 16px; }
  table { width: 100%; border-collapse: collapse; font-size: 11px; margin-top: 8px; }
  th, td { border: 1px solid #e5e7eb; padding: 6px 8px; text-align: start; }
  th { background: #f9fafb; }
  .dot { display: inline-block; width: 10px; height: 10px; border-radius: 50%; }
  .chart { margin: 12px 0; max-width: 100%; }
  .gauges img { width: 30%; margin: 4px; }
  .disclaimer { margin-top: 32px; padding: 12px; background: #f9fafb; border-left: 4px solid #9ca3af; font-size: 10px; color: #6b7280; }
</style>
</head>
<body>
<h1>Lab Report Analysis</h1>

<h2>Patient Information</h2>
<ul>
  <li><strong>Age:</strong> {{with .Analysis.PatientInfo.Age}}{{.}}{{else}}N/A{{end}}</li>
  <li><strong>Gender:</strong> {{with .Analysis.PatientInfo.Gender}}{{.}}{{else}}N/A{{end}}</li>
  <li><strong>Report Date:</strong> {{with .Analysis.PatientInfo.ReportDate}}{{.}}{{else}}N/A{{end}}</li>
</ul>

<h2>Summary</h2>
<p>{{.Analysis.Summary}}</p>

<h2>Test Results</h2>
{{range $idx, $category := .Analysis.Categories}}
<h3>{{$category.Name}}</h3>
<table>
  <tr><th></th><th>Test</th><th>Value</th><th>Unit</th><th>Reference Range</th><th>Interpretation</th></tr>
  {{range $category.Tests}}
  <tr>
    <td><span class="dot" style="background: {{index $.Colors .Severity}}"></span></td>
    <td>{{.TestName}}</td>
    <td>{{.Value}}</td>
    <td>{{.Unit}}</td>
    <td>{{.ReferenceRange}}</td>
    <td>{{.Interpretation}}</td>
  </tr>
  {{end}}
</table>
{{with index $.Charts $idx}}
  {{if .Bar}}<img class="chart" src="{{.Bar}}" alt="">{{end}}
  {{if .Gauges}}<div class="gauges">{{range .Gauges}}<img src="{{.}}" alt="">{{end}}</div>{{end}}
{{end}}
{{end}}

{{with .Analysis.AbnormalAnalysis}}<h2>Abnormal Value Analysis</h2><p>{{.}}</p>{{end}}
{{with .Analysis.ClinicalAssociations}}<h2>Clinical Associations</h2><p>{{.}}</p>{{end}}
{{with .Analysis.LifestyleTips}}<h2>Lifestyle Recommendations</h2><p>{{.}}</p>{{end}}

<div class="disclaimer"><strong>Disclaimer:</strong> {{.Disclaimer}}</div>
</body>
</html>
`))
