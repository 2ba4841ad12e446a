package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "image/jpeg"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const sourceBase = "source"

// EmbeddedStrategy extracts the image XObjects embedded in each page, in
// document order, and recovers their page positions from the content stream
// transform state where possible.
type EmbeddedStrategy struct {
	logger *log.Logger
}

var _ Strategy = (*EmbeddedStrategy)(nil)

func NewEmbeddedStrategy(logger *log.Logger) *EmbeddedStrategy {
	if logger == nil {
		logger = log.Default()
	}
	return &EmbeddedStrategy{logger: logger}
}

func (s *EmbeddedStrategy) ExtractPages(ctx context.Context, data []byte) ([]PageImage, error) {
	workDir, err := os.MkdirTemp("", "docpipe-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	srcPath := filepath.Join(workDir, sourceBase+".pdf")
	if err := os.WriteFile(srcPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("read pdf context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	imageDir := filepath.Join(workDir, "images")
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	// Extract page by page so one bad page cannot abort the rest.
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageSel := []string{strconv.Itoa(page)}
		if err := api.ExtractImagesFile(srcPath, imageDir, pageSel, conf); err != nil {
			s.logger.Printf("page %d: extract embedded images: %v", page, err)
		}
	}

	placements := s.pagePlacements(srcPath, workDir, pageCount, conf)

	return s.collectImages(imageDir, placements)
}

// pagePlacements walks every page's content stream for image positions.
// Failures leave pages without placements, which downgrades those images to
// origin-default positions rather than failing extraction.
func (s *EmbeddedStrategy) pagePlacements(srcPath, workDir string, pageCount int, conf *model.Configuration) map[int][]Placement {
	placements := make(map[int][]Placement, pageCount)

	contentDir := filepath.Join(workDir, "content")
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		s.logger.Printf("create content dir: %v", err)
		return placements
	}
	if err := api.ExtractContentFile(srcPath, contentDir, nil, conf); err != nil {
		s.logger.Printf("extract content streams: %v", err)
		return placements
	}

	entries, err := os.ReadDir(contentDir)
	if err != nil {
		s.logger.Printf("read content dir: %v", err)
		return placements
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		page, ok := parseContentPageNumber(entry.Name())
		if !ok {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(contentDir, entry.Name()))
		if err != nil {
			s.logger.Printf("page %d: read content stream: %v", page, err)
			continue
		}
		placements[page] = WalkContent(string(raw))
	}

	return placements
}

func (s *EmbeddedStrategy) collectImages(imageDir string, placements map[int][]Placement) ([]PageImage, error) {
	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}

	type extracted struct {
		page int
		name string
		file string
	}
	perPage := make(map[int][]extracted)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		page, objName, ok := parseImageFilename(entry.Name())
		if !ok {
			continue
		}
		perPage[page] = append(perPage[page], extracted{page: page, name: objName, file: entry.Name()})
	}

	pageNumbers := make([]int, 0, len(perPage))
	for page := range perPage {
		pageNumbers = append(pageNumbers, page)
	}
	sort.Ints(pageNumbers)

	images := make([]PageImage, 0)
	for _, page := range pageNumbers {
		items := perPage[page]
		sort.Slice(items, func(i, j int) bool { return lessObjectName(items[i].name, items[j].name) })

		sequence := 0
		for _, item := range items {
			raw, err := os.ReadFile(filepath.Join(imageDir, item.file))
			if err != nil {
				s.logger.Printf("page %d: read image %s: %v", page, item.file, err)
				continue
			}
			if len(raw) < MinImageBytes {
				s.logger.Printf("page %d: image %s below size threshold (%d bytes), skipping", page, item.file, len(raw))
				continue
			}

			decoded, _, err := image.Decode(bytes.NewReader(raw))
			if err != nil {
				s.logger.Printf("page %d: decode image %s: %v", page, item.file, err)
				continue
			}

			var buf bytes.Buffer
			if err := png.Encode(&buf, decoded); err != nil {
				s.logger.Printf("page %d: encode image %s as png: %v", page, item.file, err)
				continue
			}

			bounds := decoded.Bounds()
			pi := PageImage{
				PageNumber: page,
				Sequence:   sequence,
				Data:       buf.Bytes(),
				Width:      bounds.Dx(),
				Height:     bounds.Dy(),
			}
			if pos, ok := placementFor(placements[page], item.name); ok {
				x, y := pos.X, pos.Y
				pi.X, pi.Y = &x, &y
			}
			images = append(images, pi)
			sequence++
		}
	}

	return images, nil
}

// lessObjectName orders XObject names by prefix and then numeric suffix, so
// Im2 sorts before Im10 and sequence numbers follow document order.
func lessObjectName(a, b string) bool {
	aPrefix, aNum, aOK := splitNameNumber(a)
	bPrefix, bNum, bOK := splitNameNumber(b)
	if aOK && bOK && aPrefix == bPrefix {
		return aNum < bNum
	}
	return a < b
}

func splitNameNumber(name string) (string, int, bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return name, 0, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], n, true
}

func placementFor(placements []Placement, name string) (Placement, bool) {
	for _, p := range placements {
		if p.Name == name {
			return p, true
		}
	}
	return Placement{}, false
}

// parseImageFilename splits pdfcpu's extracted image naming scheme,
// "<base>_<page>_<objName>.<ext>", into its parts.
func parseImageFilename(name string) (int, string, bool) {
	ext := filepath.Ext(name)
	if ext == "" {
		return 0, "", false
	}
	trimmed := strings.TrimSuffix(name, ext)
	trimmed, ok := strings.CutPrefix(trimmed, sourceBase+"_")
	if !ok {
		return 0, "", false
	}
	pageStr, objName, found := strings.Cut(trimmed, "_")
	if !found {
		return 0, "", false
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return 0, "", false
	}
	return page, objName, true
}

func parseContentPageNumber(name string) (int, bool) {
	var page int
	if _, err := fmt.Sscanf(name, "page_%d", &page); err == nil {
		return page, true
	}
	if _, err := fmt.Sscanf(name, "Content_page_%d", &page); err == nil {
		return page, true
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if _, err := fmt.Sscanf(base, sourceBase+"_Content_page_%d", &page); err == nil {
		return page, true
	}
	return 0, false
}
