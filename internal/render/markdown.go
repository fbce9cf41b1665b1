// Package render turns a structured analysis into user-facing artifacts:
// markdown, charts and a printable PDF. Rendering failures are non-fatal to
// the pipeline; callers log and continue with whatever was produced.
package render

import (
	"fmt"
	"strings"

	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// Severity emoji used in the markdown result tables.
var severityEmoji = map[string]string{
	models.SeverityNormal:     "\U0001F7E2",
	models.SeverityBorderline: "\U0001F7E1",
	models.SeverityCritical:   "\U0001F534",
}

// DefaultDisclaimer is appended when the analysis carries none.
const DefaultDisclaimer = "This report provides educational insights and clinical associations only. " +
	"It is not a diagnosis or treatment recommendation. " +
	"Please consult a qualified physician."

// Markdown renders the analysis as GFM markdown with severity indicators.
func Markdown(analysis *models.Analysis) string {
	var b strings.Builder

	b.WriteString("# Lab Report Analysis\n\n")
	renderPatientInfo(&b, analysis.PatientInfo)
	renderSummary(&b, analysis.Summary)
	renderCategories(&b, analysis.Categories)

	if analysis.AbnormalAnalysis != "" {
		fmt.Fprintf(&b, "## Abnormal Value Analysis\n\n%s\n\n", analysis.AbnormalAnalysis)
	}
	if analysis.ClinicalAssociations != "" {
		fmt.Fprintf(&b, "## Clinical Associations\n\n%s\n\n", analysis.ClinicalAssociations)
	}
	if analysis.LifestyleTips != "" {
		fmt.Fprintf(&b, "## Lifestyle Recommendations\n\n%s\n\n", analysis.LifestyleTips)
	}

	disclaimer := analysis.Disclaimer
	if disclaimer == "" {
		disclaimer = DefaultDisclaimer
	}
	fmt.Fprintf(&b, "---\n\n> **Disclaimer:** %s\n", disclaimer)

	return b.String()
}

func renderPatientInfo(b *strings.Builder, info models.PatientInfo) {
	b.WriteString("## Patient Information\n\n")
	fmt.Fprintf(b, "- **Age:** %s\n", orNA(info.Age.String()))
	fmt.Fprintf(b, "- **Gender:** %s\n", orNA(info.Gender))
	fmt.Fprintf(b, "- **Report Date:** %s\n\n", orNA(info.ReportDate))
}

func renderSummary(b *strings.Builder, summary string) {
	if summary == "" {
		summary = "No summary available."
	}
	fmt.Fprintf(b, "## Summary\n\n%s\n\n", summary)
}

func renderCategories(b *strings.Builder, categories []models.Category) {
	if len(categories) == 0 {
		b.WriteString("## Test Results\n\nNo test results found.\n\n")
		return
	}

	b.WriteString("## Test Results\n\n")
	for _, category := range categories {
		name := category.Name
		if name == "" {
			name = "Uncategorized"
		}
		fmt.Fprintf(b, "### %s\n\n", name)

		if len(category.Tests) == 0 {
			b.WriteString("No tests in this category.\n\n")
			continue
		}

		b.WriteString("| Status | Test | Value | Unit | Reference Range | Interpretation |\n")
		b.WriteString("|:------:|------|-------|------|-----------------|----------------|\n")

		hasStandard := false
		for _, test := range category.Tests {
			emoji, ok := severityEmoji[test.Severity]
			if !ok {
				emoji = severityEmoji[models.SeverityNormal]
			}

			refRange := orNA(test.ReferenceRange)
			if test.ReferenceSource == models.ReferenceSourceStandard {
				refRange += " *"
				hasStandard = true
			}

			fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
				emoji,
				escapePipe(orDefault(test.TestName, "Unknown")),
				escapePipe(orNA(test.Value.String())),
				escapePipe(test.Unit),
				escapePipe(refRange),
				escapePipe(test.Interpretation))
		}

		if hasStandard {
			b.WriteString("\n*\\* Reference values not available in the report; ranges based on standard medical knowledge.*\n")
		}
		b.WriteString("\n")
	}
}

// escapePipe keeps cell content from breaking GFM tables.
func escapePipe(text string) string {
	return strings.ReplaceAll(text, "|", "\\|")
}

func orNA(s string) string {
	return orDefault(s, "N/A")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
