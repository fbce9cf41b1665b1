// Package pipeline orchestrates the processing of one submitted lab report:
// text extraction, privacy scrubbing, classification, structured analysis,
// optional translation, rendering and notification. The Job Store is updated
// at each checkpoint so status polling always sees a coherent snapshot.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/internal/notify"
	"github.com/usamaalam01/LabReportAI/internal/privacy"
	"github.com/usamaalam01/LabReportAI/internal/render"
	"github.com/usamaalam01/LabReportAI/internal/store"
	"github.com/usamaalam01/LabReportAI/internal/validator"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// Outcome is the result of one pipeline invocation.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeNotFound  Outcome = "not-found"
)

// Extractor produces text from an uploaded document.
type Extractor interface {
	Extract(ctx context.Context, path, fileType string) (string, error)
}

// Classifier judges whether text is a lab report.
type Classifier interface {
	Classify(ctx context.Context, text string) validator.Verdict
}

// Analyzer produces the structured interpretation.
type Analyzer interface {
	Analyze(ctx context.Context, text string, age *int, gender string) (*models.Analysis, error)
}

// Translator renders the interpretation in another language.
type Translator interface {
	Translate(ctx context.Context, analysis *models.Analysis, language string) (*models.Analysis, error)
}

// PDFRenderer produces the printable artifact.
type PDFRenderer interface {
	Generate(ctx context.Context, analysis *models.Analysis, charts map[int]render.CategoryCharts, outputDir, language string) (string, error)
}

// Options tunes pipeline behavior.
type Options struct {
	// OutputsPath is the directory charts and PDFs are written under,
	// one subdirectory per job.
	OutputsPath string

	// FailClosed fails the job when the classifier is unavailable. The
	// default (fail open) proceeds to analysis with a warning.
	FailClosed bool

	// PublicBaseURL, when set, lets notifications attach the PDF via a
	// download link.
	PublicBaseURL string
}

// Pipeline processes report jobs end to end.
type Pipeline struct {
	store      store.Store
	extractor  Extractor
	classifier Classifier
	analyzer   Analyzer
	translator Translator
	pdf        PDFRenderer
	notifier   notify.Notifier
	opts       Options
	log        zerolog.Logger
}

// New wires a Pipeline from its stage implementations.
func New(st store.Store, extractor Extractor, classifier Classifier, analyzer Analyzer, translator Translator, pdf PDFRenderer, notifier notify.Notifier, opts Options) *Pipeline {
	return &Pipeline{
		store:      st,
		extractor:  extractor,
		classifier: classifier,
		analyzer:   analyzer,
		translator: translator,
		pdf:        pdf,
		notifier:   notifier,
		opts:       opts,
		log:        logger.WithComponent("pipeline"),
	}
}

// Process runs the full pipeline for one job. Stage failures are absorbed
// into the job record; a non-nil error is returned only for infrastructure
// failures (store unreachable) that the caller may retry once.
func (p *Pipeline) Process(ctx context.Context, jobID string) (Outcome, error) {
	log := p.log.With().Str("job_id", jobID).Logger()

	report, err := p.store.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Error().Msg("Report not found")
			return OutcomeNotFound, nil
		}
		return OutcomeFailed, fmt.Errorf("failed to load report: %w", err)
	}

	// Re-running a finished job must not redo any work or overwrite its
	// recorded result.
	if report.Status.IsTerminal() {
		log.Info().Str("status", string(report.Status)).Msg("Report already finished, skipping")
		if report.Status == models.StatusFailed {
			return OutcomeFailed, nil
		}
		return OutcomeCompleted, nil
	}

	// Make the transition visible to pollers before the slow stages run.
	report.Status = models.StatusProcessing
	if err := p.store.Update(ctx, report); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to persist processing status: %w", err)
	}

	// Stage 1: text extraction. Fatal on unreadable or garbage documents.
	log.Info().Str("file", report.FilePath).Str("type", report.FileType).Msg("Extracting text")
	rawText, err := p.extractor.Extract(ctx, report.FilePath, report.FileType)
	if err != nil {
		log.Warn().Err(err).Msg("Extraction failed")
		return p.fail(ctx, report, err.Error())
	}
	log.Info().Int("chars", len(rawText)).Msg("Text extracted")

	// Stage 2: privacy scrubbing. Only the scrubbed text is ever persisted;
	// the raw text stays in memory for the analyzer, which needs the
	// document's own demographics.
	scrubbed := privacy.Scrub(rawText)
	report.OCRText = scrubbed
	if summary := privacy.Summary(scrubbed); len(summary) > 0 {
		log.Info().Interface("redactions", summary).Msg("PII scrubbed")
	}
	if err := p.store.Update(ctx, report); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to persist scrubbed text: %w", err)
	}

	// Stage 3: classification. A confident negative fails the job; a
	// classifier outage fails open unless configured otherwise.
	verdict := p.classifier.Classify(ctx, scrubbed)
	switch verdict.Status {
	case validator.StatusRejected:
		msg := fmt.Sprintf("This does not appear to be a lab report. Reason: %s", verdict.Reason)
		log.Warn().Str("reason", verdict.Reason).Msg("Document rejected by classifier")
		return p.fail(ctx, report, msg)
	case validator.StatusUnavailable:
		if p.opts.FailClosed {
			log.Warn().Err(verdict.Err).Msg("Classifier unavailable, failing closed")
			return p.fail(ctx, report, verdict.Err.Error())
		}
		log.Warn().Err(verdict.Err).Msg("Classifier unavailable, proceeding without validation")
	default:
		log.Info().Float64("confidence", verdict.Confidence).Msg("Document accepted by classifier")
	}

	// Stage 4: structured analysis, on the raw text. Fatal.
	analysis, err := p.analyzer.Analyze(ctx, rawText, report.Age, report.Gender)
	if err != nil {
		log.Warn().Err(err).Msg("Analysis failed")
		return p.fail(ctx, report, err.Error())
	}

	// The persisted JSON is always the original-language interpretation,
	// regardless of the display language.
	resultJSON, err := json.Marshal(analysis)
	if err != nil {
		return p.fail(ctx, report, fmt.Sprintf("failed to encode analysis: %v", err))
	}
	report.ResultJSON = string(resultJSON)

	// Stage 5: optional translation. Non-fatal; fall back to the original.
	display := analysis
	if needsTranslation(report.Language) {
		translated, err := p.translator.Translate(ctx, analysis, languageName(report.Language))
		if err != nil {
			log.Warn().Err(err).Str("language", report.Language).
				Msg("Translation failed, using untranslated interpretation")
		} else {
			display = translated
		}
	}

	// Stage 6: markdown, from whichever interpretation reached this point.
	report.ResultMarkdown = render.Markdown(display)

	// Stage 7: charts, always from the original interpretation (axes are
	// numeric). Non-fatal.
	jobDir := filepath.Join(p.opts.OutputsPath, report.JobID)
	charts, err := render.Charts(analysis, filepath.Join(jobDir, "charts"))
	if err != nil {
		log.Warn().Err(err).Msg("Chart generation failed, continuing without charts")
		charts = nil
	}

	// Stage 8: PDF. Non-fatal.
	if pdfPath, err := p.pdf.Generate(ctx, display, charts, jobDir, report.Language); err != nil {
		log.Warn().Err(err).Msg("PDF generation failed, continuing without PDF")
	} else {
		report.ResultPDFPath = pdfPath
	}

	report.Status = models.StatusCompleted
	report.ErrorMessage = ""
	if err := p.store.Update(ctx, report); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to persist completion: %w", err)
	}
	log.Info().Msg("Report completed")

	// Stage 9: notification. Best effort, at most one attempt.
	p.notifyCompletion(ctx, report, display)

	return OutcomeCompleted, nil
}

// fail marks the job FAILED with a stage-specific message.
func (p *Pipeline) fail(ctx context.Context, report *models.Report, msg string) (Outcome, error) {
	report.Status = models.StatusFailed
	report.ErrorMessage = msg
	if err := p.store.Update(ctx, report); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to persist failure: %w", err)
	}
	return OutcomeFailed, nil
}

// notifyCompletion tells a WhatsApp submitter their report is ready. Errors
// are logged and never affect job state.
func (p *Pipeline) notifyCompletion(ctx context.Context, report *models.Report, display *models.Analysis) {
	if report.Source != models.SourceWhatsApp || report.WhatsAppNumber == "" {
		return
	}
	if p.notifier == nil || !p.notifier.Enabled() {
		return
	}

	body := "Your lab report analysis is ready."
	if display.Summary != "" {
		body = fmt.Sprintf("Your lab report analysis is ready.\n\n%s", display.Summary)
	}

	var err error
	if report.ResultPDFPath != "" && p.opts.PublicBaseURL != "" {
		pdfURL := fmt.Sprintf("%s/v1/download/%s", p.opts.PublicBaseURL, report.JobID)
		err = p.notifier.SendPDF(ctx, report.WhatsAppNumber, body, pdfURL)
	} else {
		err = p.notifier.Send(ctx, report.WhatsAppNumber, body)
	}
	if err != nil {
		p.log.Warn().Err(err).Str("job_id", report.JobID).Msg("Notification failed")
	}
}

// needsTranslation reports whether the target language differs from the
// analysis source language.
func needsTranslation(language string) bool {
	return language != "" && language != "en"
}

// languageName maps a language code to the name used in translation prompts.
func languageName(code string) string {
	switch code {
	case "ur":
		return "Urdu"
	default:
		return code
	}
}
