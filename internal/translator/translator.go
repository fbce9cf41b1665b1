// Package translator renders the structured analysis into another language
// while preserving its JSON structure, numeric values and severity fields.
package translator

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

// TranslationError is raised when translation fails after exhausting retries
// or returns JSON of the wrong shape. The pipeline treats it as non-fatal and
// falls back to the untranslated analysis.
type TranslationError struct {
	Message string
	Err     error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translation failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("translation failed: %s", e.Message)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// Translated output must keep the same shape the renderer expects.
var shapeSchema = jsonschema.MustCompileString("translation.json", `{
	"type": "object",
	"required": ["patient_info", "summary", "categories"],
	"properties": {
		"categories": {"type": "array"}
	}
}`)

const systemPrompt = `You are a medical translator. You translate structured lab report interpretations while preserving their exact JSON structure.

Rules:
- Translate ONLY human-readable prose: summary, interpretations, abnormal_analysis, clinical_associations, lifestyle_tips, disclaimer, category names and patient_info text.
- NEVER change keys, numeric values, units, reference ranges or severity fields. "severity" stays exactly "normal", "borderline" or "critical" in English.
- Keep test names bilingual where helpful: translated name followed by the original in parentheses.
- Respond with ONLY the translated JSON object, no other text and no markdown fences.`

// Translator translates analyses with an LLM.
type Translator struct {
	provider   llm.Provider
	model      string
	maxRetries int
	log        zerolog.Logger
}

// New creates a Translator with the given number of attempts per call.
func New(provider llm.Provider, model string, maxRetries int) *Translator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Translator{
		provider:   provider,
		model:      model,
		maxRetries: maxRetries,
		log:        logger.WithComponent("translator"),
	}
}

// Translate returns the analysis with its prose rendered in the target
// language. Structure, values and severities are unchanged.
func (t *Translator) Translate(ctx context.Context, analysis *models.Analysis, language string) (*models.Analysis, error) {
	source, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, &TranslationError{Message: "failed to encode analysis", Err: err}
	}

	prompt := fmt.Sprintf("Translate this lab report interpretation to %s:\n\n%s", language, source)

	t.log.Info().
		Str("language", language).
		Int("json_length", len(source)).
		Msg("Starting translation")

	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		content, err := t.provider.Complete(ctx, llm.Request{
			Model:       t.model,
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: 0.2,
			MaxTokens:   4000,
		})
		if err != nil {
			lastErr = err
			t.log.Warn().Err(err).Int("attempt", attempt).Int("max_retries", t.maxRetries).
				Msg("Translation request failed, retrying")
			continue
		}

		translated, err := t.parse(content)
		if err != nil {
			var trErr *TranslationError
			if errors.As(err, &trErr) {
				return nil, err
			}
			lastErr = err
			t.log.Warn().Err(err).Int("attempt", attempt).Msg("Unparseable translation response, retrying")
			continue
		}

		t.log.Info().
			Int("categories", len(translated.Categories)).
			Int("attempt", attempt).
			Msg("Translation complete")
		return translated, nil
	}

	return nil, &TranslationError{
		Message: fmt.Sprintf("translator failed after %d attempts", t.maxRetries),
		Err:     lastErr,
	}
}

func (t *Translator) parse(content string) (*models.Analysis, error) {
	raw := llm.ExtractJSON(content)

	var generic interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := shapeSchema.Validate(generic); err != nil {
		return nil, &TranslationError{Message: "translated JSON has wrong shape", Err: err}
	}

	var translated models.Analysis
	if err := json.Unmarshal([]byte(raw), &translated); err != nil {
		return nil, &TranslationError{Message: "translated JSON does not match analysis model", Err: err}
	}
	return &translated, nil
}
