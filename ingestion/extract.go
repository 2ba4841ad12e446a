package ingestion

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Pages maps 1-based page numbers to extracted plain text. Every page of the
// source document has an entry, including pages with no text (empty string).
type Pages map[int]string

// ExtractionError marks document bytes that could not be parsed at all. The
// orchestrator treats it as fatal for the document.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract document text: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// TextExtractor produces page-ordered plain text from raw document bytes.
// The content type hint selects the PDF or plain-text path.
type TextExtractor interface {
	Extract(data []byte, contentType string) (Pages, error)
}

const pdfContentType = "application/pdf"

// DefaultExtractor dispatches on the caller-supplied content type: PDF input
// is read page by page, anything else is treated as a single-page text file.
type DefaultExtractor struct{}

var _ TextExtractor = DefaultExtractor{}

func (DefaultExtractor) Extract(data []byte, contentType string) (Pages, error) {
	if isPDF(contentType) {
		return extractPDFText(data)
	}
	return extractPlainText(data)
}

func isPDF(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	return mediaType == pdfContentType
}

func extractPDFText(data []byte) (Pages, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	pages := make(Pages, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		pages[i] = ""

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unreadable single pages keep their empty entry.
			continue
		}
		pages[i] = text
	}

	return pages, nil
}

func extractPlainText(data []byte) (Pages, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return Pages{1: text}, nil
}
