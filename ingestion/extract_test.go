package ingestion

import (
	"errors"
	"testing"
)

func TestExtractPlainTextSinglePage(t *testing.T) {
	pages, err := DefaultExtractor{}.Extract([]byte("line one\r\nline two"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pages) != 1 {
		t.Fatalf("expected a single page, got %d", len(pages))
	}
	if pages[1] != "line one\nline two" {
		t.Fatalf("unexpected page text %q", pages[1])
	}
}

func TestExtractMalformedPDF(t *testing.T) {
	_, err := DefaultExtractor{}.Extract([]byte("definitely not a pdf"), "application/pdf")
	if err == nil {
		t.Fatal("expected extraction error for malformed pdf bytes")
	}

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected *ExtractionError, got %T", err)
	}
}

func TestIsPDFContentType(t *testing.T) {
	cases := map[string]bool{
		"application/pdf":                true,
		"application/pdf; charset=UTF-8": true,
		"APPLICATION/PDF":                true,
		"text/plain":                     false,
		"application/octet-stream":       false,
		"":                               false,
	}
	for contentType, want := range cases {
		if got := isPDF(contentType); got != want {
			t.Fatalf("isPDF(%q) = %v, want %v", contentType, got, want)
		}
	}
}
