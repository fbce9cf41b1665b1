// Package analyzer turns recognized lab report text into a structured
// interpretation using the analysis LLM.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/usamaalam01/LabReportAI/internal/llm"
	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// maxTextChars caps how much recognized text goes into the analysis prompt,
// so long multi-page reports stay inside the model's context window.
const maxTextChars = 8000

// AnalysisError is raised when analysis fails after exhausting retries, or
// when the provider returns JSON of the wrong shape.
type AnalysisError struct {
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("analysis failed: %s", e.Message)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// shapeSchema enforces the contract the renderer depends on. Parseable JSON
// with missing top-level keys is still a fatal analysis failure.
var shapeSchema = jsonschema.MustCompileString("analysis.json", `{
	"type": "object",
	"required": ["patient_info", "summary", "categories"],
	"properties": {
		"patient_info": {"type": "object"},
		"summary": {"type": "string"},
		"categories": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "tests"],
				"properties": {
					"name": {"type": "string"},
					"tests": {"type": "array"}
				}
			}
		}
	}
}`)

const systemPrompt = `You are a clinical laboratory report interpreter. You receive raw text extracted from a scanned lab report and produce a structured interpretation for a patient without medical training.

Rules:
- Use the reference ranges printed in the report. When a range is missing, use standard clinical knowledge and set "reference_source" to "standard_knowledge" for that test.
- Severity per test is exactly one of "normal", "borderline" or "critical".
- Keep interpretations short and plain-spoken. No diagnoses; describe what the value means and when to see a doctor.
- Respond with ONLY a JSON object, no other text and no markdown fences.`

const promptTemplate = `Patient context (use only if the report itself does not state it):
Age: %s
Gender: %s

Lab report text:
%s

Return JSON with exactly this structure:
{
  "patient_info": {"name": "...", "age": "...", "gender": "...", "report_date": "..."},
  "summary": "2-3 sentence overview in plain language",
  "categories": [
    {
      "name": "category name, e.g. Complete Blood Count",
      "tests": [
        {
          "test_name": "...",
          "value": "...",
          "unit": "...",
          "reference_range": "low - high as printed on the report",
          "severity": "normal|borderline|critical",
          "interpretation": "one sentence in plain language",
          "reference_source": "report or standard_knowledge"
        }
      ]
    }
  ],
  "abnormal_analysis": "explanation of abnormal values and what commonly causes them",
  "clinical_associations": "conditions commonly associated with this pattern of results",
  "lifestyle_tips": "practical diet and lifestyle suggestions",
  "disclaimer": "this is not medical advice"
}`

// Analyzer produces structured interpretations of lab reports.
type Analyzer struct {
	provider   llm.Provider
	model      string
	maxRetries int
	log        zerolog.Logger
}

// New creates an Analyzer with the given number of attempts per call.
func New(provider llm.Provider, model string, maxRetries int) *Analyzer {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Analyzer{
		provider:   provider,
		model:      model,
		maxRetries: maxRetries,
		log:        logger.WithComponent("analyzer"),
	}
}

// Analyze interprets the report text. Age and gender are optional fallback
// context for reports that omit patient demographics.
func (a *Analyzer) Analyze(ctx context.Context, text string, age *int, gender string) (*models.Analysis, error) {
	text = llm.Truncate(text, maxTextChars)

	ageStr := "Not provided"
	if age != nil {
		ageStr = fmt.Sprintf("%d", *age)
	}
	genderStr := gender
	if genderStr == "" {
		genderStr = "Not provided"
	}

	prompt := fmt.Sprintf(promptTemplate, ageStr, genderStr, text)

	a.log.Info().
		Str("model", a.model).
		Str("age", ageStr).
		Str("gender", genderStr).
		Int("text_length", len(text)).
		Msg("Starting lab report analysis")

	var lastErr error
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		content, err := a.provider.Complete(ctx, llm.Request{
			Model:       a.model,
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: 0.2,
			MaxTokens:   4000,
		})
		if err != nil {
			lastErr = err
			a.log.Warn().Err(err).Int("attempt", attempt).Int("max_retries", a.maxRetries).
				Msg("Analysis request failed, retrying")
			continue
		}

		analysis, err := a.parse(content)
		if err != nil {
			var shapeErr *AnalysisError
			if errors.As(err, &shapeErr) {
				// Wrong shape despite valid JSON: fatal, retrying won't help
				// the renderer.
				return nil, err
			}
			lastErr = err
			a.log.Warn().Err(err).Int("attempt", attempt).Msg("Unparseable analysis response, retrying")
			continue
		}

		a.log.Info().
			Int("categories", len(analysis.Categories)).
			Int("summary_length", len(analysis.Summary)).
			Int("attempt", attempt).
			Msg("Lab report analysis complete")
		return analysis, nil
	}

	return nil, &AnalysisError{
		Message: fmt.Sprintf("analyzer failed after %d attempts", a.maxRetries),
		Err:     lastErr,
	}
}

// parse decodes and shape-checks a completion.
func (a *Analyzer) parse(content string) (*models.Analysis, error) {
	raw := llm.ExtractJSON(content)

	var generic interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := shapeSchema.Validate(generic); err != nil {
		return nil, &AnalysisError{Message: "response JSON has wrong shape", Err: err}
	}

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, &AnalysisError{Message: "response JSON does not match analysis model", Err: err}
	}
	return &analysis, nil
}
