// Package raster produces page images from PDF documents and classifies them
// as diagram-like or photographic.
package raster

import "context"

// MinImageBytes is the sanity threshold below which extracted image data is
// treated as invalid and no image is produced.
const MinImageBytes = 100

// PageImage is one normalized page image. Data is always PNG-encoded.
// X and Y are set only when the producing strategy recovered the image's
// position on the page; a full-page render never has a position.
type PageImage struct {
	PageNumber int
	Sequence   int
	Data       []byte
	Width      int
	Height     int
	X          *float64
	Y          *float64
}

// Strategy turns a PDF into page images. Implementations must isolate
// per-page failures: a bad page yields no images for that page but never
// aborts the remaining pages. A strategy-level error means no images could
// be produced at all.
type Strategy interface {
	ExtractPages(ctx context.Context, data []byte) ([]PageImage, error)
}
