package raster

import (
	"sort"
	"testing"
)

func TestObjectNameOrderingIsNumericAware(t *testing.T) {
	names := []string{"Im10", "Im2", "Im1", "Im11", "Im3"}
	sort.Slice(names, func(i, j int) bool { return lessObjectName(names[i], names[j]) })

	want := []string{"Im1", "Im2", "Im3", "Im10", "Im11"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, names[i], want[i])
		}
	}
}

func TestObjectNameOrderingFallsBackToLexicographic(t *testing.T) {
	if !lessObjectName("Fm1", "Im1") {
		t.Fatal("different prefixes must compare lexicographically")
	}
	if !lessObjectName("Background", "Logo") {
		t.Fatal("names without numeric suffixes must compare lexicographically")
	}
	if lessObjectName("Im5", "Im5") {
		t.Fatal("equal names must not compare as less")
	}
}
