package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/usamaalam01/LabReportAI/internal/llm"
)

const goodResponse = `{
	"patient_info": {"name": "[REDACTED]", "age": "45", "gender": "Male", "report_date": "2026-08-01"},
	"summary": "Most values are within normal limits. Hemoglobin is slightly low.",
	"categories": [
		{
			"name": "Complete Blood Count",
			"tests": [
				{
					"test_name": "Hemoglobin",
					"value": 11.2,
					"unit": "g/dL",
					"reference_range": "12.0 - 16.0",
					"severity": "borderline",
					"interpretation": "Slightly below the expected range.",
					"reference_source": "report"
				}
			]
		}
	],
	"abnormal_analysis": "Low hemoglobin commonly reflects iron deficiency.",
	"clinical_associations": "Anemia.",
	"lifestyle_tips": "Iron-rich foods may help.",
	"disclaimer": "This is not medical advice."
}`

type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	if p.errs != nil && p.errs[i] != nil {
		return "", p.errs[i]
	}
	return p.responses[i], nil
}

func TestAnalyze(t *testing.T) {
	a := New(&scriptedProvider{responses: []string{goodResponse}}, "test-model", 2)

	analysis, err := a.Analyze(context.Background(), "Hemoglobin 11.2 g/dL (12.0 - 16.0)", nil, "")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(analysis.Categories) != 1 {
		t.Fatalf("got %d categories, want 1", len(analysis.Categories))
	}
	test := analysis.Categories[0].Tests[0]
	if test.TestName != "Hemoglobin" {
		t.Errorf("test_name = %q, want Hemoglobin", test.TestName)
	}
	// Numeric value in the provider JSON must decode as a string.
	if string(test.Value) != "11.2" {
		t.Errorf("value = %q, want \"11.2\"", test.Value)
	}
	if test.Severity != "borderline" {
		t.Errorf("severity = %q, want borderline", test.Severity)
	}
}

func TestAnalyzeFencedResponse(t *testing.T) {
	a := New(&scriptedProvider{responses: []string{"```json\n" + goodResponse + "\n```"}}, "test-model", 2)

	analysis, err := a.Analyze(context.Background(), "Hemoglobin 11.2", nil, "")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if analysis.Summary == "" {
		t.Error("summary is empty")
	}
}

func TestAnalyzeWrongShapeFatal(t *testing.T) {
	// Valid JSON but missing the categories key: fatal, no retry.
	p := &scriptedProvider{responses: []string{
		`{"patient_info": {}, "summary": "x"}`,
		goodResponse,
	}}
	a := New(p, "test-model", 3)

	_, err := a.Analyze(context.Background(), "text", nil, "")
	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("Analyze() error = %v, want *AnalysisError", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 (shape errors are not retried)", p.calls)
	}
}

func TestAnalyzeRetriesParseFailure(t *testing.T) {
	p := &scriptedProvider{responses: []string{"not json at all", goodResponse}}
	a := New(p, "test-model", 3)

	if _, err := a.Analyze(context.Background(), "text", nil, ""); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want 2", p.calls)
	}
}

func TestAnalyzeExhaustedRetries(t *testing.T) {
	transportErr := errors.New("connection refused")
	p := &scriptedProvider{
		responses: []string{"", ""},
		errs:      []error{transportErr, transportErr},
	}
	a := New(p, "test-model", 2)

	_, err := a.Analyze(context.Background(), "text", nil, "")
	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("Analyze() error = %v, want *AnalysisError", err)
	}
	if !errors.Is(err, transportErr) {
		t.Errorf("Analyze() error does not wrap transport error: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want 2", p.calls)
	}
}

func TestAnalyzeUsesFallbackDemographics(t *testing.T) {
	var prompt string
	p := &capturingProvider{response: goodResponse, captured: &prompt}
	a := New(p, "test-model", 1)

	age := 45
	if _, err := a.Analyze(context.Background(), "text", &age, "Female"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	for _, want := range []string{"45", "Female"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing fallback context %q", want)
		}
	}
}

type capturingProvider struct {
	response string
	captured *string
}

func (p *capturingProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	*p.captured = req.Prompt
	return p.response, nil
}
