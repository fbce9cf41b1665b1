// Package validator asks a fast LLM whether recognized text is a genuine lab
// report before the expensive analysis stage runs.
package validator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/usamaalam01/LabReportAI/internal/llm"
	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// maxTextChars caps how much recognized text is sent to the classification
// model. Long documents are truncated, not chunked.
const maxTextChars = 4000

// Verdict status values. A rejection is a confident negative answer from the
// provider; unavailable means the provider itself could not be consulted.
// The pipeline fails the job on rejection but (by default) proceeds on
// unavailability.
type Status string

const (
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusUnavailable Status = "unavailable"
)

// Verdict is the classification outcome.
type Verdict struct {
	Status     Status
	Confidence float64

	// Reason is the provider's stated reason for a rejection, surfaced
	// verbatim to the caller.
	Reason string

	// Err holds the underlying failure when Status is StatusUnavailable.
	Err error
}

// ValidationError is raised when the classifier cannot produce a verdict
// after exhausting its retries.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

const systemPrompt = `You are a medical document classifier. You decide whether text extracted from a scanned document is a clinical laboratory report (blood work, urinalysis, pathology panels, and similar documents containing test names, measured values and reference ranges).

Respond with ONLY a JSON object, no other text:
{"is_lab_report": true or false, "confidence": 0.0 to 1.0, "reason": "one short sentence"}`

// Validator classifies documents with an LLM.
type Validator struct {
	provider   llm.Provider
	model      string
	threshold  float64
	maxRetries int
	log        zerolog.Logger
}

// New creates a Validator. threshold is the minimum confidence for an
// affirmative verdict to be accepted; maxRetries is the number of attempts
// made per call on transport and parse failures.
func New(provider llm.Provider, model string, threshold float64, maxRetries int) *Validator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Validator{
		provider:   provider,
		model:      model,
		threshold:  threshold,
		maxRetries: maxRetries,
		log:        logger.WithComponent("validator"),
	}
}

// Classify asks the provider whether text is a lab report. It never returns
// an error: provider failure after retries is encoded as StatusUnavailable so
// the caller can choose to fail open or closed.
func (v *Validator) Classify(ctx context.Context, text string) Verdict {
	text = llm.Truncate(text, maxTextChars)

	prompt := fmt.Sprintf("Classify the following document text:\n\n%s", text)

	var lastErr error
	for attempt := 1; attempt <= v.maxRetries; attempt++ {
		content, err := v.provider.Complete(ctx, llm.Request{
			Model:       v.model,
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: 0.1,
			MaxTokens:   300,
		})
		if err != nil {
			lastErr = err
			v.log.Warn().Err(err).Int("attempt", attempt).Int("max_retries", v.maxRetries).
				Msg("Classification request failed, retrying")
			continue
		}

		var result models.ValidationResult
		if err := json.Unmarshal([]byte(llm.ExtractJSON(content)), &result); err != nil {
			lastErr = fmt.Errorf("failed to parse classification response: %w", err)
			v.log.Warn().Err(err).Int("attempt", attempt).Str("response", content).
				Msg("Unparseable classification response, retrying")
			continue
		}

		return v.verdictFor(result)
	}

	v.log.Error().Err(lastErr).Int("attempts", v.maxRetries).Msg("Classifier unavailable after retries")
	return Verdict{
		Status: StatusUnavailable,
		Err:    &ValidationError{Message: fmt.Sprintf("classifier failed after %d attempts", v.maxRetries), Err: lastErr},
	}
}

// verdictFor applies the confidence threshold to a parsed provider answer.
func (v *Validator) verdictFor(result models.ValidationResult) Verdict {
	v.log.Info().
		Bool("is_lab_report", result.IsLabReport).
		Float64("confidence", result.Confidence).
		Str("reason", result.Reason).
		Msg("Classification result")

	if result.IsLabReport && result.Confidence >= v.threshold {
		return Verdict{Status: StatusAccepted, Confidence: result.Confidence, Reason: result.Reason}
	}

	reason := result.Reason
	if reason == "" {
		reason = "document does not appear to be a lab report"
	}
	return Verdict{Status: StatusRejected, Confidence: result.Confidence, Reason: reason}
}
