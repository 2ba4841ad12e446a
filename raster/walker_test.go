package raster

import "testing"

func TestWalkContentRecordsTranslation(t *testing.T) {
	placements := WalkContent("q 1 0 0 1 100 200 cm /Im0 Do Q")

	if len(placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(placements))
	}
	p := placements[0]
	if p.Name != "Im0" {
		t.Fatalf("expected name Im0, got %s", p.Name)
	}
	if p.X != 100 || p.Y != 200 {
		t.Fatalf("expected position (100, 200), got (%v, %v)", p.X, p.Y)
	}
}

func TestWalkContentDefaultsToOrigin(t *testing.T) {
	placements := WalkContent("/Im7 Do")

	if len(placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(placements))
	}
	if placements[0].X != 0 || placements[0].Y != 0 {
		t.Fatalf("expected page origin, got (%v, %v)", placements[0].X, placements[0].Y)
	}
}

func TestWalkContentRestoresStateOnQ(t *testing.T) {
	content := "q 1 0 0 1 10 20 cm q 1 0 0 1 5 5 cm /Im1 Do Q /Im2 Do Q"
	placements := WalkContent(content)

	if len(placements) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(placements))
	}
	if placements[0].X != 15 || placements[0].Y != 25 {
		t.Fatalf("expected nested placement at (15, 25), got (%v, %v)", placements[0].X, placements[0].Y)
	}
	if placements[1].X != 10 || placements[1].Y != 20 {
		t.Fatalf("expected restored placement at (10, 20), got (%v, %v)", placements[1].X, placements[1].Y)
	}
}

func TestWalkContentConcatenatesTransforms(t *testing.T) {
	// A scale followed by a translation: the translation happens in the
	// scaled space, so the effective offset doubles.
	placements := WalkContent("2 0 0 2 0 0 cm 1 0 0 1 50 60 cm /Im0 Do")

	if len(placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(placements))
	}
	if placements[0].X != 100 || placements[0].Y != 120 {
		t.Fatalf("expected (100, 120), got (%v, %v)", placements[0].X, placements[0].Y)
	}
}

func TestWalkContentIgnoresOperatorsInStrings(t *testing.T) {
	content := "BT (fake q 1 0 0 1 9 9 cm /ImX Do) Tj ET /Im0 Do"
	placements := WalkContent(content)

	if len(placements) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(placements))
	}
	if placements[0].Name != "Im0" {
		t.Fatalf("expected Im0, got %s", placements[0].Name)
	}
	if placements[0].X != 0 || placements[0].Y != 0 {
		t.Fatal("string contents must not affect the transform state")
	}
}

func TestWalkContentIgnoresNonImageDo(t *testing.T) {
	// A Do without a preceding name operand is malformed; skip it.
	placements := WalkContent("Do 1 2 Do")
	if len(placements) != 0 {
		t.Fatalf("expected no placements, got %d", len(placements))
	}
}

func TestWalkContentMultipleImages(t *testing.T) {
	content := "q 1 0 0 1 10 0 cm /Im0 Do Q q 1 0 0 1 0 30 cm /Im1 Do Q"
	placements := WalkContent(content)

	if len(placements) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(placements))
	}
	if placements[0].Name != "Im0" || placements[1].Name != "Im1" {
		t.Fatal("placements must preserve drawing order")
	}
	if placements[1].X != 0 || placements[1].Y != 30 {
		t.Fatalf("expected (0, 30), got (%v, %v)", placements[1].X, placements[1].Y)
	}
}

func TestParseImageFilename(t *testing.T) {
	page, name, ok := parseImageFilename("source_3_Im2.png")
	if !ok || page != 3 || name != "Im2" {
		t.Fatalf("expected page 3 name Im2, got page %d name %s ok %v", page, name, ok)
	}

	if _, _, ok := parseImageFilename("unrelated.txt"); ok {
		t.Fatal("non-matching filename must not parse")
	}
	if _, _, ok := parseImageFilename("source_x_Im0.png"); ok {
		t.Fatal("non-numeric page must not parse")
	}
}
