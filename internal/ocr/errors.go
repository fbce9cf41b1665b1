package ocr

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrFileNotFound is returned when the document path does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedType is returned for file types the extractor cannot handle.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrUnreadablePDF is returned when the PDF cannot be opened or rendered.
	// The file may be corrupted or password-protected.
	ErrUnreadablePDF = errors.New("unable to read PDF: the file may be corrupted or password-protected")

	// ErrGarbageText is returned when recognition produced unreadable noise.
	ErrGarbageText = errors.New("the document appears to be blurred or unreadable; please upload a clearer image")

	// ErrRecognitionFailed is returned when the recognition backend fails.
	ErrRecognitionFailed = errors.New("text recognition failed")

	// ErrMissingCredentials is returned when no Google Cloud credentials are
	// configured for the recognition backend.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")
)

// ExtractionError wraps errors with context about the extraction failure.
// A pipeline treats any ExtractionError as fatal for the job.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "ExtractPDF", "DetectText").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates an ExtractionError for the given operation.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{Op: op, Err: err, Details: details}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err
	}
	return NewExtractionError(op, err, details)
}
