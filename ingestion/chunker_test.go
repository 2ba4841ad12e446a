package ingestion

import (
	"strings"
	"testing"
)

func TestSplitTextIntoChunksIsLossless(t *testing.T) {
	text := strings.Repeat("abcdefghij", 257) // 2570 chars

	chunks := SplitTextIntoChunks(text, 1000)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if got := strings.Join(chunks, ""); got != text {
		t.Fatal("concatenated chunks do not reproduce the input")
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 {
		t.Fatalf("expected full chunks of 1000, got %d and %d", len(chunks[0]), len(chunks[1]))
	}
	if len(chunks[2]) != 570 {
		t.Fatalf("expected final partial chunk of 570, got %d", len(chunks[2]))
	}
}

func TestSplitTextIntoChunksExactMultiple(t *testing.T) {
	text := strings.Repeat("x", 2000)

	chunks := SplitTextIntoChunks(text, 1000)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestSplitTextIntoChunksEmpty(t *testing.T) {
	if chunks := SplitTextIntoChunks("", 1000); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplitTextIntoChunksShortText(t *testing.T) {
	chunks := SplitTextIntoChunks("short", 1000)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short" {
		t.Fatalf("expected chunk %q, got %q", "short", chunks[0])
	}
}

func TestSplitTextIntoChunksDeterministic(t *testing.T) {
	text := strings.Repeat("determinism ", 300)

	first := SplitTextIntoChunks(text, 1000)
	second := SplitTextIntoChunks(text, 1000)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitTextIntoChunksMultibyte(t *testing.T) {
	text := strings.Repeat("ψ", 1500)

	chunks := SplitTextIntoChunks(text, 1000)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if got := strings.Join(chunks, ""); got != text {
		t.Fatal("multibyte text not reproduced exactly")
	}
}
