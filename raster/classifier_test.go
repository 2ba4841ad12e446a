package raster

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func flatImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func noiseImage(w, h int) image.Image {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func TestFlatImageIsDiagram(t *testing.T) {
	c := NewClassifier()
	if !c.IsDiagram(flatImage(100, 100, color.White)) {
		t.Fatal("flat 100x100 image must classify as diagram")
	}
}

func TestNoiseImageIsNotDiagram(t *testing.T) {
	c := NewClassifier()
	if c.IsDiagram(noiseImage(100, 100)) {
		t.Fatal("random noise image must not classify as diagram")
	}
}

func TestTinyImageIsNeverDiagram(t *testing.T) {
	c := NewClassifier()
	if c.IsDiagram(flatImage(30, 30, color.White)) {
		t.Fatal("images below the minimum dimension are never diagrams")
	}
	if c.IsDiagram(flatImage(100, 30, color.White)) {
		t.Fatal("one small dimension is enough to reject classification")
	}
}

func TestNilImageIsNotDiagram(t *testing.T) {
	c := NewClassifier()
	if c.IsDiagram(nil) {
		t.Fatal("nil image must not classify as diagram")
	}
}

func TestClassificationIsDeterministic(t *testing.T) {
	c := NewClassifier()
	img := noiseImage(120, 80)

	first := c.IsDiagram(img)
	for i := 0; i < 10; i++ {
		if c.IsDiagram(img) != first {
			t.Fatal("classification must be stable across repeated calls")
		}
	}
}

func TestChartLikeImageIsDiagram(t *testing.T) {
	// White background with a black axis-aligned frame, like a bar chart.
	img := image.NewRGBA(image.Rect(0, 0, 200, 150))
	for x := 0; x < 200; x++ {
		for y := 0; y < 150; y++ {
			img.Set(x, y, color.White)
		}
	}
	for x := 0; x < 200; x++ {
		img.Set(x, 20, color.Black)
		img.Set(x, 130, color.Black)
	}
	for y := 0; y < 150; y++ {
		img.Set(20, y, color.Black)
		img.Set(180, y, color.Black)
	}

	c := NewClassifier()
	if !c.IsDiagram(img) {
		t.Fatal("axis-aligned chart frame must classify as diagram")
	}
}
