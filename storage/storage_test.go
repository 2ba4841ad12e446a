package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSaveDocumentRoundtrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	data := []byte("raw upload bytes")
	rel, err := store.SaveDocument("abc123", data)
	if err != nil {
		t.Fatalf("save document: %v", err)
	}

	got, err := store.ReadFile(rel)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("read back %q, want %q", got, data)
	}
}

func TestSaveDocumentIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	first, err := store.SaveDocument("samehash", []byte("payload"))
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := store.SaveDocument("samehash", []byte("payload"))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if first != second {
		t.Fatalf("paths differ: %q vs %q", first, second)
	}
}

func TestSaveImageUniquePaths(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	docID := uuid.New()
	a, err := store.SaveImage(docID, 1, 0, []byte("png-a"))
	if err != nil {
		t.Fatalf("save image a: %v", err)
	}
	b, err := store.SaveImage(docID, 1, 0, []byte("png-b"))
	if err != nil {
		t.Fatalf("save image b: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct paths for repeated save, got %q twice", a)
	}
	if !strings.HasSuffix(a, ".png") {
		t.Fatalf("expected .png suffix, got %q", a)
	}

	got, err := store.ReadFile(b)
	if err != nil {
		t.Fatalf("read back image: %v", err)
	}
	if string(got) != "png-b" {
		t.Fatalf("read back %q, want png-b", got)
	}
}

func TestReadFileRejectsEscapingPaths(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	for _, rel := range []string{"../etc/passwd", "..", "/etc/passwd", "documents/../../secret"} {
		if _, err := store.ReadFile(rel); err == nil {
			t.Fatalf("expected error for path %q", rel)
		}
	}
}
