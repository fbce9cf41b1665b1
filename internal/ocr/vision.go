package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"github.com/gen2brain/go-fitz"
	"google.golang.org/api/option"

	"github.com/usamaalam01/LabReportAI/internal/logger"
)

const (
	// MaxFileSizeBytes is the maximum document size accepted for recognition (20MB).
	MaxFileSizeBytes = 20 * 1024 * 1024

	// renderDPI is the resolution at which PDF pages are rasterized before
	// recognition. 200 is enough for typical lab report print sizes.
	renderDPI = 200
)

// VisionExtractor recognizes document text with the Google Cloud Vision API.
// PDFs are rasterized page by page; a PDF with a usable embedded text layer
// skips recognition entirely.
type VisionExtractor struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionExtractor creates a Vision-backed extractor with credentials from
// the environment. It expects either GOOGLE_APPLICATION_CREDENTIALS path or
// GOOGLE_CREDENTIALS JSON in env.
func NewVisionExtractor(ctx context.Context) (*VisionExtractor, error) {
	const op = "NewVisionExtractor"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapExtractionError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapExtractionError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &VisionExtractor{client: client}, nil
}

// NewVisionExtractorWithClient creates an extractor with an explicit client (for testing).
func NewVisionExtractorWithClient(client *vision.ImageAnnotatorClient) *VisionExtractor {
	return &VisionExtractor{client: client}
}

// Extract recognizes the text of the document at path.
func (v *VisionExtractor) Extract(ctx context.Context, path, fileType string) (string, error) {
	const op = "Extract"

	if !SupportedType(fileType) {
		return "", NewExtractionError(op, ErrUnsupportedType, fileType)
	}

	var text string
	var err error
	if fileType == "pdf" {
		text, err = v.extractPDF(ctx, path)
	} else {
		data, rerr := readDocument(path)
		if rerr != nil {
			return "", rerr
		}
		if len(data) > MaxFileSizeBytes {
			return "", NewExtractionError(op, ErrRecognitionFailed, fmt.Sprintf("file too large: %d bytes", len(data)))
		}
		text, err = v.detectImage(ctx, data)
	}
	if err != nil {
		return "", err
	}

	if IsGarbageText(text) {
		return "", NewExtractionError(op, ErrGarbageText, fmt.Sprintf("recognized %d chars of noise", len(text)))
	}
	return text, nil
}

// detectImage runs document text detection on a single encoded image.
func (v *VisionExtractor) detectImage(ctx context.Context, data []byte) (string, error) {
	const op = "DetectImage"

	img, err := vision.NewImageFromReader(bytes.NewReader(data))
	if err != nil {
		return "", WrapExtractionError(op, err, "failed to decode image payload")
	}

	annotation, err := v.client.DetectDocumentText(ctx, img, nil)
	if err != nil {
		return "", WrapExtractionError(op, ErrRecognitionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if annotation == nil {
		return "", nil
	}
	return annotation.GetText(), nil
}

// extractPDF extracts text from a PDF. PDFs with a selectable text layer are
// read directly; scanned PDFs are rasterized page by page and recognized.
func (v *VisionExtractor) extractPDF(ctx context.Context, path string) (string, error) {
	const op = "ExtractPDF"
	log := logger.WithComponent("ocr")

	if layer, err := extractTextLayer(path); err == nil && !IsGarbageText(layer) {
		log.Debug().Str("path", path).Int("chars", len(layer)).Msg("Using embedded PDF text layer")
		return layer, nil
	}

	doc, err := fitz.New(path)
	if err != nil {
		return "", NewExtractionError(op, ErrUnreadablePDF, err.Error())
	}
	defer doc.Close()

	var pages strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, renderDPI)
		if err != nil {
			return "", NewExtractionError(op, ErrUnreadablePDF, fmt.Sprintf("failed to render page %d: %v", n+1, err))
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return "", WrapExtractionError(op, err, fmt.Sprintf("failed to encode page %d", n+1))
		}

		pageText, err := v.detectImage(ctx, buf.Bytes())
		if err != nil {
			return "", WrapExtractionError(op, err, fmt.Sprintf("recognition failed on page %d", n+1))
		}

		if n > 0 {
			pages.WriteString(fmt.Sprintf("\n\n--- Page %d ---\n\n", n+1))
		}
		pages.WriteString(pageText)
	}

	return pages.String(), nil
}

// Close closes the underlying Vision client.
func (v *VisionExtractor) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
