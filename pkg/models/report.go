package models

import (
	"time"

	"github.com/google/uuid"
)

// ReportStatus represents the lifecycle state of a report job.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusProcessing ReportStatus = "processing"
	StatusCompleted  ReportStatus = "completed"
	StatusFailed     ReportStatus = "failed"
)

// IsTerminal reports whether the status allows no further transitions.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ReportSource identifies the channel a report was submitted through.
type ReportSource string

const (
	SourceWeb      ReportSource = "web"
	SourceWhatsApp ReportSource = "whatsapp"
)

// DefaultRetention is how long a report record is kept before the
// cleanup sweep removes it.
const DefaultRetention = 48 * time.Hour

// Report is the persisted record for one submitted lab report document.
// It is the single source of truth for pipeline progress: the orchestrator
// persists it after every meaningful transition so that status polling
// always sees a coherent snapshot.
type Report struct {
	// Identity
	ID    string // Internal primary key
	JobID string // Externally visible job identifier (opaque, unique, immutable)

	Status ReportStatus

	// Inputs
	FilePath string // Location of the uploaded document
	FileType string // Declared content type ("pdf", "jpg", "jpeg", "png")
	Age      *int   // Optional patient age from the submission form
	Gender   string // Optional patient gender from the submission form
	Language string // Target output language ("en", "ur", ...)

	// Intermediate artifacts. OCRText always holds the SCRUBBED text;
	// unscrubbed text is never persisted.
	OCRText string

	// Outputs. Set only when Status == StatusCompleted.
	ResultJSON     string // Serialized analysis, always in the original language
	ResultMarkdown string // Rendered markdown, possibly translated
	ResultPDFPath  string // Path to the rendered PDF, empty if PDF generation failed

	// ErrorMessage is set if and only if Status == StatusFailed.
	ErrorMessage string

	// Channel
	Source         ReportSource
	WhatsAppNumber string // Destination number when Source == SourceWhatsApp
	IPAddress      string // Submitter network address

	// Temporal
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReport creates a pending report for an uploaded file with fresh
// identifiers and the default retention horizon.
func NewReport(filePath, fileType string) *Report {
	now := time.Now().UTC()
	return &Report{
		ID:        uuid.New().String(),
		JobID:     uuid.New().String(),
		Status:    StatusPending,
		FilePath:  filePath,
		FileType:  fileType,
		Language:  "en",
		Source:    SourceWeb,
		ExpiresAt: now.Add(DefaultRetention),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Expired reports whether the report is past its retention horizon.
func (r *Report) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
