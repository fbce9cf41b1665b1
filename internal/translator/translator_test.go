package translator

import (
	"context"
	"errors"
	"testing"

	"github.com/usamaalam01/LabReportAI/internal/llm"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

func sampleAnalysis() *models.Analysis {
	return &models.Analysis{
		PatientInfo: models.PatientInfo{Age: "45", Gender: "Male"},
		Summary:     "Hemoglobin is slightly low.",
		Categories: []models.Category{
			{
				Name: "Complete Blood Count",
				Tests: []models.Test{
					{
						TestName:       "Hemoglobin",
						Value:          "11.2",
						Unit:           "g/dL",
						ReferenceRange: "12.0 - 16.0",
						Severity:       models.SeverityBorderline,
						Interpretation: "Slightly below the expected range.",
					},
				},
			},
		},
	}
}

const translatedResponse = `{
	"patient_info": {"age": "45", "gender": "Male"},
	"summary": "ہیموگلوبن معمولی حد تک کم ہے۔",
	"categories": [
		{
			"name": "خون کا مکمل معائنہ (Complete Blood Count)",
			"tests": [
				{
					"test_name": "ہیموگلوبن (Hemoglobin)",
					"value": "11.2",
					"unit": "g/dL",
					"reference_range": "12.0 - 16.0",
					"severity": "borderline",
					"interpretation": "معمول کی حد سے معمولی کم۔"
				}
			]
		}
	]
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

func TestTranslatePreservesStructure(t *testing.T) {
	tr := New(&scriptedProvider{responses: []string{translatedResponse}}, "test-model", 2)

	got, err := tr.Translate(context.Background(), sampleAnalysis(), "Urdu")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	if len(got.Categories) != 1 {
		t.Fatalf("got %d categories, want 1", len(got.Categories))
	}
	if len(got.Categories[0].Tests) != 1 {
		t.Fatalf("got %d tests, want 1", len(got.Categories[0].Tests))
	}

	test := got.Categories[0].Tests[0]
	if string(test.Value) != "11.2" {
		t.Errorf("value = %q, want unchanged \"11.2\"", test.Value)
	}
	if test.Unit != "g/dL" {
		t.Errorf("unit = %q, want unchanged g/dL", test.Unit)
	}
	if test.Severity != models.SeverityBorderline {
		t.Errorf("severity = %q, want unchanged borderline", test.Severity)
	}
	if got.Summary == sampleAnalysis().Summary {
		t.Error("summary was not translated")
	}
}

func TestTranslateFencedResponse(t *testing.T) {
	tr := New(&scriptedProvider{responses: []string{"```json\n" + translatedResponse + "\n```"}}, "test-model", 2)

	if _, err := tr.Translate(context.Background(), sampleAnalysis(), "Urdu"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
}

func TestTranslateWrongShapeFatal(t *testing.T) {
	p := &scriptedProvider{responses: []string{`{"summary": "missing keys"}`, translatedResponse}}
	tr := New(p, "test-model", 3)

	_, err := tr.Translate(context.Background(), sampleAnalysis(), "Urdu")
	var trErr *TranslationError
	if !errors.As(err, &trErr) {
		t.Fatalf("Translate() error = %v, want *TranslationError", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 (shape errors are not retried)", p.calls)
	}
}

func TestTranslateExhaustedRetries(t *testing.T) {
	transportErr := errors.New("connection refused")
	p := &scriptedProvider{
		responses: []string{"", ""},
		errs:      []error{transportErr, transportErr},
	}
	tr := New(p, "test-model", 2)

	_, err := tr.Translate(context.Background(), sampleAnalysis(), "Urdu")
	var trErr *TranslationError
	if !errors.As(err, &trErr) {
		t.Fatalf("Translate() error = %v, want *TranslationError", err)
	}
	if p.calls != 2 {
		t.Errorf("provider called %d times, want 2", p.calls)
	}
}
