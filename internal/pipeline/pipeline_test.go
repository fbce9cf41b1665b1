package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/usamaalam01/LabReportAI/internal/render"
	"github.com/usamaalam01/LabReportAI/internal/store"
	"github.com/usamaalam01/LabReportAI/internal/validator"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

const sampleText = `Patient Name: Ahmed Khan
Phone: 0301-2345678
Hemoglobin 11.2 g/dL (13.0 - 17.0)
WBC Count 6.5 x10^9/L (4.0 - 11.0)`

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _, _ string) (string, error) {
	return f.text, f.err
}

type fakeClassifier struct {
	verdict validator.Verdict
	gotText string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) validator.Verdict {
	f.gotText = text
	return f.verdict
}

type fakeAnalyzer struct {
	analysis *models.Analysis
	err      error
	gotText  string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, text string, _ *int, _ string) (*models.Analysis, error) {
	f.gotText = text
	return f.analysis, f.err
}

type fakeTranslator struct {
	analysis *models.Analysis
	err      error
	calls    int
}

func (f *fakeTranslator) Translate(_ context.Context, _ *models.Analysis, _ string) (*models.Analysis, error) {
	f.calls++
	return f.analysis, f.err
}

type fakePDF struct {
	err   error
	calls int
}

func (f *fakePDF) Generate(_ context.Context, _ *models.Analysis, _ map[int]render.CategoryCharts, outputDir, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(outputDir, "report.pdf"), nil
}

type fakeNotifier struct {
	enabled   bool
	err       error
	sent      []string
	mediaURLs []string
}

func (f *fakeNotifier) Send(_ context.Context, _, body string) error {
	f.sent = append(f.sent, body)
	return f.err
}

func (f *fakeNotifier) SendPDF(_ context.Context, _, body, mediaURL string) error {
	f.sent = append(f.sent, body)
	f.mediaURLs = append(f.mediaURLs, mediaURL)
	return f.err
}

func (f *fakeNotifier) Enabled() bool { return f.enabled }

func sampleAnalysis() *models.Analysis {
	return &models.Analysis{
		PatientInfo: models.PatientInfo{Name: "[REDACTED]", Gender: "male"},
		Summary:     "Mild anemia with otherwise unremarkable counts.",
		Categories: []models.Category{
			{
				Name: "Complete Blood Count",
				Tests: []models.Test{
					{
						TestName:       "Hemoglobin",
						Value:          models.FlexString("11.2"),
						Unit:           "g/dL",
						ReferenceRange: "13.0 - 17.0",
						Severity:       models.SeverityBorderline,
						Interpretation: "Slightly below the reference range.",
					},
				},
			},
		},
		Disclaimer: render.DefaultDisclaimer,
	}
}

type fixture struct {
	store      *store.Memory
	extractor  *fakeExtractor
	classifier *fakeClassifier
	analyzer   *fakeAnalyzer
	translator *fakeTranslator
	pdf        *fakePDF
	notifier   *fakeNotifier
	opts       Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		store:      store.NewMemory(),
		extractor:  &fakeExtractor{text: sampleText},
		classifier: &fakeClassifier{verdict: validator.Verdict{Status: validator.StatusAccepted, Confidence: 0.95}},
		analyzer:   &fakeAnalyzer{analysis: sampleAnalysis()},
		translator: &fakeTranslator{analysis: sampleAnalysis()},
		pdf:        &fakePDF{},
		notifier:   &fakeNotifier{},
		opts:       Options{OutputsPath: t.TempDir()},
	}
}

func (f *fixture) pipeline() *Pipeline {
	return New(f.store, f.extractor, f.classifier, f.analyzer, f.translator, f.pdf, f.notifier, f.opts)
}

func (f *fixture) submit(t *testing.T, mutate func(*models.Report)) *models.Report {
	t.Helper()
	r := models.NewReport("/uploads/doc.pdf", "pdf")
	if mutate != nil {
		mutate(r)
	}
	if err := f.store.Create(context.Background(), r); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return r
}

func (f *fixture) load(t *testing.T, jobID string) *models.Report {
	t.Helper()
	r, err := f.store.GetByJobID(context.Background(), jobID)
	if err != nil {
		t.Fatalf("GetByJobID() error = %v", err)
	}
	return r
}

func TestProcessCompletes(t *testing.T) {
	f := newFixture(t)
	job := f.submit(t, nil)

	outcome, err := f.pipeline().Process(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("Process() outcome = %q, want %q", outcome, OutcomeCompleted)
	}

	got := f.load(t, job.JobID)
	if got.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusCompleted)
	}
	if got.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty", got.ErrorMessage)
	}
	if got.ResultJSON == "" || !strings.Contains(got.ResultJSON, "Hemoglobin") {
		t.Errorf("ResultJSON missing analysis content: %q", got.ResultJSON)
	}
	if !strings.Contains(got.ResultMarkdown, "# Lab Report Analysis") {
		t.Errorf("ResultMarkdown missing header: %q", got.ResultMarkdown)
	}
	if got.ResultPDFPath == "" {
		t.Error("ResultPDFPath not set on success")
	}
}

func TestProcessScrubsPersistedText(t *testing.T) {
	f := newFixture(t)
	job := f.submit(t, nil)

	if _, err := f.pipeline().Process(context.Background(), job.JobID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	got := f.load(t, job.JobID)
	if strings.Contains(got.OCRText, "Ahmed Khan") {
		t.Errorf("persisted text still contains patient name: %q", got.OCRText)
	}
	if strings.Contains(got.OCRText, "0301-2345678") {
		t.Errorf("persisted text still contains phone number: %q", got.OCRText)
	}
	if !strings.Contains(got.OCRText, "Hemoglobin 11.2") {
		t.Errorf("persisted text lost clinical content: %q", got.OCRText)
	}

	// The classifier sees scrubbed text, the analyzer sees the original.
	if strings.Contains(f.classifier.gotText, "Ahmed Khan") {
		t.Error("classifier received unscrubbed text")
	}
	if !strings.Contains(f.analyzer.gotText, "Ahmed Khan") {
		t.Error("analyzer received scrubbed text, want original")
	}
}

func TestProcessExtractionFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("the document appears to be blurred or unreadable. Please upload a clearer photo or PDF of the lab report")
	job := f.submit(t, nil)

	outcome, err := f.pipeline().Process(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("Process() outcome = %q, want %q", outcome, OutcomeFailed)
	}

	got := f.load(t, job.JobID)
	if got.Status != models.StatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusFailed)
	}
	if !strings.Contains(got.ErrorMessage, "blurred or unreadable") {
		t.Errorf("ErrorMessage = %q, want extraction message", got.ErrorMessage)
	}
	if got.ResultMarkdown != "" {
		t.Errorf("ResultMarkdown = %q, want empty on failure", got.ResultMarkdown)
	}
	if f.analyzer.gotText != "" {
		t.Error("analyzer ran after fatal extraction failure")
	}
}

func TestProcessRejectionCarriesClassifierReason(t *testing.T) {
	f := newFixture(t)
	f.classifier.verdict = validator.Verdict{
		Status: validator.StatusRejected,
		Reason: "appears to be a purchase receipt",
	}
	job := f.submit(t, nil)

	outcome, err := f.pipeline().Process(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("Process() outcome = %q, want %q", outcome, OutcomeFailed)
	}

	got := f.load(t, job.JobID)
	if !strings.Contains(got.ErrorMessage, "does not appear to be a lab report") {
		t.Errorf("ErrorMessage = %q, want rejection preamble", got.ErrorMessage)
	}
	if !strings.Contains(got.ErrorMessage, "appears to be a purchase receipt") {
		t.Errorf("ErrorMessage = %q, want verbatim classifier reason", got.ErrorMessage)
	}
	if f.analyzer.gotText != "" {
		t.Error("analyzer ran after classifier rejection")
	}
}

func TestProcessClassifierOutage(t *testing.T) {
	tests := []struct {
		name        string
		failClosed  bool
		wantOutcome Outcome
		wantStatus  models.ReportStatus
	}{
		{"fail open proceeds", false, OutcomeCompleted, models.StatusCompleted},
		{"fail closed stops", true, OutcomeFailed, models.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.opts.FailClosed = tt.failClosed
			f.classifier.verdict = validator.Verdict{
				Status: validator.StatusUnavailable,
				Err:    errors.New("validation failed after 3 attempts"),
			}
			job := f.submit(t, nil)

			outcome, err := f.pipeline().Process(context.Background(), job.JobID)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if outcome != tt.wantOutcome {
				t.Errorf("Process() outcome = %q, want %q", outcome, tt.wantOutcome)
			}
			if got := f.load(t, job.JobID); got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestProcessAnalysisFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.analyzer.analysis = nil
	f.analyzer.err = errors.New("analysis failed after 3 attempts")
	job := f.submit(t, nil)

	outcome, err := f.pipeline().Process(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("Process() outcome = %q, want %q", outcome, OutcomeFailed)
	}

	got := f.load(t, job.JobID)
	if got.Status != models.StatusFailed || got.ErrorMessage == "" {
		t.Errorf("Status = %q, ErrorMessage = %q; want failed with message", got.Status, got.ErrorMessage)
	}
	if got.ResultJSON != "" {
		t.Errorf("ResultJSON = %q, want empty on failure", got.ResultJSON)
	}
}

func TestProcessTranslationFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.translator.analysis = nil
	f.translator.err = errors.New("translation failed after 3 attempts")
	job := f.submit(t, func(r *models.Report) { r.Language = "ur" })

	outcome, err := f.pipeline().Process(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("Process() outcome = %q, want %q", outcome, OutcomeCompleted)
	}
	if f.translator.calls != 1 {
		t.Errorf("translator calls = %d, want 1", f.translator.calls)
	}

	got := f.load(t, job.JobID)
	if got.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusCompleted)
	}
	if !strings.Contains(got.ResultMarkdown, "Mild anemia") {
		t.Errorf("ResultMarkdown = %q, want untranslated fallback content", got.ResultMarkdown)
	}
}

func TestProcessTranslatesForUrdu(t *testing.T) {
	f := newFixture(t)
	translated := sampleAnalysis()
	translated.Summary = "خون کی ہلکی کمی۔"
	f.translator.analysis = translated
	job := f.submit(t, func(r *models.Report) { r.Language = "ur" })

	if _, err := f.pipeline().Process(context.Background(), job.JobID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	got := f.load(t, job.JobID)
	if !strings.Contains(got.ResultMarkdown, "خون کی ہلکی کمی") {
		t.Errorf("ResultMarkdown = %q, want translated summary", got.ResultMarkdown)
	}
	// The persisted JSON stays in the original language.
	if !strings.Contains(got.ResultJSON, "Mild anemia") {
		t.Errorf("ResultJSON = %q, want original-language analysis", got.ResultJSON)
	}
}

func TestProcessEnglishSkipsTranslation(t *testing.T) {
	f := newFixture(t)
	job := f.submit(t, nil)

	if _, err := f.pipeline().Process(context.Background(), job.JobID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if f.translator.calls != 0 {
		t.Errorf("translator calls = %d, want 0 for English", f.translator.calls)
	}
}

func TestProcessPDFFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.pdf.err = errors.New("weasyprint: executable file not found")
	job := f.submit(t, nil)

	outcome, err := f.pipeline().Process(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("Process() outcome = %q, want %q", outcome, OutcomeCompleted)
	}

	got := f.load(t, job.JobID)
	if got.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusCompleted)
	}
	if got.ResultPDFPath != "" {
		t.Errorf("ResultPDFPath = %q, want empty after PDF failure", got.ResultPDFPath)
	}
}

func TestProcessIsIdempotentForFinishedJobs(t *testing.T) {
	tests := []struct {
		name        string
		status      models.ReportStatus
		errorMsg    string
		wantOutcome Outcome
	}{
		{"completed job", models.StatusCompleted, "", OutcomeCompleted},
		{"failed job", models.StatusFailed, "document unreadable", OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			job := f.submit(t, func(r *models.Report) {
				r.Status = tt.status
				r.ErrorMessage = tt.errorMsg
				r.ResultMarkdown = "existing result"
			})

			outcome, err := f.pipeline().Process(context.Background(), job.JobID)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if outcome != tt.wantOutcome {
				t.Errorf("Process() outcome = %q, want %q", outcome, tt.wantOutcome)
			}

			// No stage ran and the stored record is untouched.
			if f.analyzer.gotText != "" {
				t.Error("analyzer ran for an already finished job")
			}
			got := f.load(t, job.JobID)
			if got.Status != tt.status || got.ErrorMessage != tt.errorMsg || got.ResultMarkdown != "existing result" {
				t.Errorf("finished job was modified: %+v", got)
			}
		})
	}
}

func TestProcessNotFound(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.pipeline().Process(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome != OutcomeNotFound {
		t.Fatalf("Process() outcome = %q, want %q", outcome, OutcomeNotFound)
	}
}

func TestProcessNotifiesWhatsAppSubmitter(t *testing.T) {
	f := newFixture(t)
	f.notifier.enabled = true
	f.opts.PublicBaseURL = "https://labreports.example.com"
	job := f.submit(t, func(r *models.Report) {
		r.Source = models.SourceWhatsApp
		r.WhatsAppNumber = "+923012345678"
	})

	if _, err := f.pipeline().Process(context.Background(), job.JobID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(f.notifier.sent) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(f.notifier.sent))
	}
	if !strings.Contains(f.notifier.sent[0], "analysis is ready") {
		t.Errorf("notification body = %q, want readiness message", f.notifier.sent[0])
	}
	wantURL := "https://labreports.example.com/v1/download/" + job.JobID
	if len(f.notifier.mediaURLs) != 1 || f.notifier.mediaURLs[0] != wantURL {
		t.Errorf("media URLs = %v, want [%s]", f.notifier.mediaURLs, wantURL)
	}
}

func TestProcessSkipsNotificationForWeb(t *testing.T) {
	f := newFixture(t)
	f.notifier.enabled = true
	job := f.submit(t, nil)

	if _, err := f.pipeline().Process(context.Background(), job.JobID); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Errorf("notifications sent = %d, want 0 for web submissions", len(f.notifier.sent))
	}
}

func TestProcessNotificationFailureDoesNotAffectStatus(t *testing.T) {
	f := newFixture(t)
	f.notifier.enabled = true
	f.notifier.err = errors.New("twilio returned status 401")
	job := f.submit(t, func(r *models.Report) {
		r.Source = models.SourceWhatsApp
		r.WhatsAppNumber = "+923012345678"
	})

	outcome, err := f.pipeline().Process(context.Background(), job.JobID)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("Process() outcome = %q, want %q", outcome, OutcomeCompleted)
	}
	if got := f.load(t, job.JobID); got.Status != models.StatusCompleted {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusCompleted)
	}
}
