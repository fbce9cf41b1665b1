package ocr

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractTextLayer reads the embedded text layer of a PDF, page by page, with
// the same page separators recognition output uses. Scanned PDFs yield little
// or no text here; the caller falls back to rasterized recognition.
func extractTextLayer(path string) (string, error) {
	const op = "ExtractTextLayer"

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", NewExtractionError(op, ErrUnreadablePDF, err.Error())
	}
	defer f.Close()

	var pages strings.Builder
	for n := 1; n <= r.NumPage(); n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", WrapExtractionError(op, err, fmt.Sprintf("failed to read page %d", n))
		}
		if n > 1 {
			pages.WriteString(fmt.Sprintf("\n\n--- Page %d ---\n\n", n))
		}
		pages.WriteString(text)
	}

	return pages.String(), nil
}
