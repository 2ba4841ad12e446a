package raster

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log"
	"sync"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/errgroup"
)

const renderConcurrency = 4

// RenderStrategy rasterizes every page at a fixed resolution into RGB pixel
// data, one image per page. Rendered pages carry no position metadata since
// each image represents the whole page.
type RenderStrategy struct {
	dpi    float64
	logger *log.Logger
}

var _ Strategy = (*RenderStrategy)(nil)

func NewRenderStrategy(dpi int, logger *log.Logger) *RenderStrategy {
	if dpi <= 0 {
		dpi = 300
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RenderStrategy{dpi: float64(dpi), logger: logger}
}

func (s *RenderStrategy) ExtractPages(ctx context.Context, data []byte) ([]PageImage, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf for rendering: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	rendered := make([]*PageImage, pageCount)

	// The fitz document is not safe for concurrent page access, so rendering
	// is serialized; only the PNG encoding runs in parallel.
	var renderMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(renderConcurrency)

	for i := 0; i < pageCount; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			pageNumber := i + 1
			renderMu.Lock()
			img, err := doc.ImageDPI(i, s.dpi)
			renderMu.Unlock()
			if err != nil {
				// One unrenderable page must not abort the rest.
				s.logger.Printf("page %d: render failed: %v", pageNumber, err)
				return nil
			}

			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				s.logger.Printf("page %d: encode render as png: %v", pageNumber, err)
				return nil
			}
			if buf.Len() < MinImageBytes {
				s.logger.Printf("page %d: render below size threshold (%d bytes), skipping", pageNumber, buf.Len())
				return nil
			}

			bounds := img.Bounds()
			rendered[i] = &PageImage{
				PageNumber: pageNumber,
				Sequence:   0,
				Data:       buf.Bytes(),
				Width:      bounds.Dx(),
				Height:     bounds.Dy(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	images := make([]PageImage, 0, pageCount)
	for _, pi := range rendered {
		if pi != nil {
			images = append(images, *pi)
		}
	}
	return images, nil
}
