package render

import (
	"strings"
	"testing"

	"github.com/usamaalam01/LabReportAI/pkg/models"
)

func testAnalysis() *models.Analysis {
	return &models.Analysis{
		PatientInfo: models.PatientInfo{
			Age:        models.FlexString("34"),
			Gender:     "female",
			ReportDate: "2026-08-12",
		},
		Summary: "Cholesterol is elevated; other values are within range.",
		Categories: []models.Category{
			{
				Name: "Lipid Profile",
				Tests: []models.Test{
					{
						TestName:        "Total Cholesterol",
						Value:           models.FlexString("245"),
						Unit:            "mg/dL",
						ReferenceRange:  "< 200",
						Severity:        models.SeverityCritical,
						Interpretation:  "Above the desirable limit.",
						ReferenceSource: models.ReferenceSourceStandard,
					},
					{
						TestName:       "HDL Cholesterol",
						Value:          models.FlexString("52"),
						Unit:           "mg/dL",
						ReferenceRange: "> 40",
						Severity:       models.SeverityNormal,
						Interpretation: "Within the healthy range.",
					},
				},
			},
		},
		AbnormalAnalysis: "Total cholesterol exceeds the desirable limit.",
		LifestyleTips:    "Reduce saturated fat intake.",
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(testAnalysis())

	wants := []string{
		"# Lab Report Analysis",
		"## Patient Information",
		"- **Age:** 34",
		"- **Gender:** female",
		"## Summary",
		"Cholesterol is elevated",
		"### Lipid Profile",
		"| Status | Test | Value | Unit | Reference Range | Interpretation |",
		"\U0001F534", // critical marker
		"\U0001F7E2", // normal marker
		"| Total Cholesterol | 245 | mg/dL | < 200 * |",
		"ranges based on standard medical knowledge",
		"## Abnormal Value Analysis",
		"## Lifestyle Recommendations",
		"> **Disclaimer:** " + DefaultDisclaimer,
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("Markdown() missing %q\n\n%s", want, got)
		}
	}
}

func TestMarkdownEmptyAnalysis(t *testing.T) {
	got := Markdown(&models.Analysis{})

	wants := []string{
		"- **Age:** N/A",
		"No summary available.",
		"No test results found.",
		DefaultDisclaimer,
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("Markdown() missing %q\n\n%s", want, got)
		}
	}
	if strings.Contains(got, "## Abnormal Value Analysis") {
		t.Error("Markdown() rendered abnormal section for empty analysis")
	}
}

func TestMarkdownEscapesPipes(t *testing.T) {
	analysis := &models.Analysis{
		Categories: []models.Category{
			{
				Name: "Misc",
				Tests: []models.Test{
					{TestName: "A|B Ratio", Value: models.FlexString("1.5"), Severity: models.SeverityNormal},
				},
			},
		},
	}

	got := Markdown(analysis)
	if !strings.Contains(got, `A\|B Ratio`) {
		t.Errorf("Markdown() did not escape pipe in test name:\n%s", got)
	}
}

func TestMarkdownCustomDisclaimer(t *testing.T) {
	analysis := &models.Analysis{Disclaimer: "Consult your physician."}

	got := Markdown(analysis)
	if !strings.Contains(got, "> **Disclaimer:** Consult your physician.") {
		t.Errorf("Markdown() missing custom disclaimer:\n%s", got)
	}
	if strings.Contains(got, DefaultDisclaimer) {
		t.Error("Markdown() used default disclaimer despite a custom one")
	}
}
