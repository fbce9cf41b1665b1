package ocr

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocumentAIExtractor recognizes document text with a Google Document AI OCR
// processor. Unlike the Vision backend it handles PDFs natively, so no
// rasterization is needed.
type DocumentAIExtractor struct {
	client        *documentai.DocumentProcessorClient
	processorName string
}

// NewDocumentAIExtractor creates a Document AI extractor for the given
// processor. The location determines the regional API endpoint.
func NewDocumentAIExtractor(ctx context.Context, project, location, processorID string) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if project == "" || processorID == "" {
		return nil, NewExtractionError(op, ErrMissingCredentials, "project and processor ID are required")
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, WrapExtractionError(op, err, "failed to create Document AI client")
	}

	return &DocumentAIExtractor{
		client:        client,
		processorName: fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID),
	}, nil
}

// Extract recognizes the text of the document at path.
func (d *DocumentAIExtractor) Extract(ctx context.Context, path, fileType string) (string, error) {
	const op = "Extract"

	if !SupportedType(fileType) {
		return "", NewExtractionError(op, ErrUnsupportedType, fileType)
	}

	data, err := readDocument(path)
	if err != nil {
		return "", err
	}
	if len(data) > MaxFileSizeBytes {
		return "", NewExtractionError(op, ErrRecognitionFailed, fmt.Sprintf("file too large: %d bytes", len(data)))
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeTypeFor(fileType),
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return "", WrapExtractionError(op, ErrRecognitionFailed, fmt.Sprintf("Document AI call failed: %v", err))
	}
	if resp.GetDocument() == nil {
		return "", NewExtractionError(op, ErrRecognitionFailed, "empty Document AI response")
	}

	text := resp.GetDocument().GetText()
	if IsGarbageText(text) {
		return "", NewExtractionError(op, ErrGarbageText, fmt.Sprintf("recognized %d chars of noise", len(text)))
	}
	return text, nil
}

// Close closes the underlying Document AI client.
func (d *DocumentAIExtractor) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
