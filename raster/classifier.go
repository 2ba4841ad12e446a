package raster

import (
	"image"
	"math"
)

const (
	// Images smaller than this on either side are ambiguous fragments and
	// never classified as diagrams.
	minClassifiableDim = 50

	colorSampleTarget = 1000
	fewColorThreshold = 50
	manyColorCap      = 100

	// Squared Euclidean RGB distance under which two pixels count as the
	// same color for line detection (30^2).
	similarColorDistSq = 900

	requiredLineCount = 2
)

// Classifier labels raster images as diagram-like or photographic using two
// heuristics: low color diversity sampled on a fixed grid, and long
// axis-aligned runs of near-identical color on evenly spaced scanlines.
// An image is a diagram when either signal fires. Sampling is grid-based, so
// the same image always gets the same label.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

func (c *Classifier) IsDiagram(img image.Image) bool {
	if img == nil {
		return false
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < minClassifiableDim || height < minClassifiableDim {
		return false
	}

	hasFewColors := countGridColors(img) < fewColorThreshold
	hasLines := detectLines(img)

	return hasFewColors || hasLines
}

// countGridColors samples pixels on a deterministic grid and counts distinct
// colors, bailing out early once the count clearly indicates photographic
// content.
func countGridColors(img image.Image) int {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	side := int(math.Sqrt(float64(colorSampleTarget)))
	xStep := width / side
	if xStep < 1 {
		xStep = 1
	}
	yStep := height / side
	if yStep < 1 {
		yStep = 1
	}

	colors := make(map[uint32]struct{})
	for x := bounds.Min.X; x < bounds.Max.X; x += xStep {
		for y := bounds.Min.Y; y < bounds.Max.Y; y += yStep {
			colors[rgbAt(img, x, y)] = struct{}{}
			if len(colors) > manyColorCap {
				return len(colors)
			}
		}
	}

	return len(colors)
}

// detectLines scans evenly spaced horizontal and vertical lines within the
// central 80% of the image for a contiguous run of near-identical color
// longer than a quarter of the line. Two such runs in either direction
// signal axis-aligned structure.
func detectLines(img image.Image) bool {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	horizontal := 0
	for y := height / 10; y < height*9/10; y += height / 10 {
		if hasRun(img, bounds.Min.X, bounds.Min.Y+y, 1, 0, width) {
			horizontal++
			if horizontal >= requiredLineCount {
				return true
			}
		}
	}

	vertical := 0
	for x := width / 10; x < width*9/10; x += width / 10 {
		if hasRun(img, bounds.Min.X+x, bounds.Min.Y, 0, 1, height) {
			vertical++
			if vertical >= requiredLineCount {
				return true
			}
		}
	}

	return false
}

// hasRun walks length pixels from (x, y) in steps of (dx, dy) looking for a
// contiguous run of similar color longer than length/4.
func hasRun(img image.Image, x, y, dx, dy, length int) bool {
	prev := rgbAt(img, x, y)
	run := 1
	for i := 1; i < length; i++ {
		color := rgbAt(img, x+i*dx, y+i*dy)
		if similarColor(color, prev) {
			run++
			if run > length/4 {
				return true
			}
		} else {
			run = 1
			prev = color
		}
	}
	return false
}

func rgbAt(img image.Image, x, y int) uint32 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (r>>8)<<16 | (g>>8)<<8 | b>>8
}

func similarColor(c1, c2 uint32) bool {
	r1, g1, b1 := int((c1>>16)&0xff), int((c1>>8)&0xff), int(c1&0xff)
	r2, g2, b2 := int((c2>>16)&0xff), int((c2>>8)&0xff), int(c2&0xff)

	dr, dg, db := r1-r2, g1-g2, b1-b2
	return dr*dr+dg*dg+db*db < similarColorDistSq
}
