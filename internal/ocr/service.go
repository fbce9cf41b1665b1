package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/usamaalam01/LabReportAI/internal/config"
)

// Extractor extracts text from an uploaded document.
type Extractor interface {
	// Extract returns the recognized text of the document at path. The
	// fileType is the normalized lowercase extension without the dot
	// ("pdf", "jpg", "jpeg", "png", "webp").
	Extract(ctx context.Context, path, fileType string) (string, error)

	// Close releases any backend clients.
	Close() error
}

// imageTypes are the image extensions accepted for recognition.
var imageTypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// SupportedType reports whether fileType can be processed.
func SupportedType(fileType string) bool {
	return fileType == "pdf" || imageTypes[strings.ToLower(fileType)]
}

// NewExtractor builds the extractor selected by cfg.OCREngine.
func NewExtractor(ctx context.Context, cfg *config.Config) (Extractor, error) {
	switch cfg.OCREngine {
	case config.OCREngineDocumentAI:
		return NewDocumentAIExtractor(ctx, cfg.GoogleCloudProject, cfg.GoogleCloudLocation, cfg.DocumentAIProcessorID)
	case config.OCREngineVision:
		return NewVisionExtractor(ctx)
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.OCREngine)
	}
}

// readDocument loads the file at path, mapping missing files to ErrFileNotFound.
func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewExtractionError("ReadDocument", ErrFileNotFound, path)
		}
		return nil, NewExtractionError("ReadDocument", err, path)
	}
	return data, nil
}

// mimeTypeFor returns the MIME type for a supported file type.
func mimeTypeFor(fileType string) string {
	switch strings.ToLower(fileType) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// NormalizeFileType derives the canonical file type from a filename.
func NormalizeFileType(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}
