// Package ingestion drives the document pipeline: dedup by content hash,
// page-ordered text extraction, chunking, image extraction and
// classification, and embedding index synchronization.
package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sort"
	"strings"
	"time"

	_ "image/png"

	"github.com/google/uuid"

	"github.com/fabfab/docpipe/embeddings"
	"github.com/fabfab/docpipe/raster"
	"github.com/fabfab/docpipe/store"
)

// ErrEmptyInput rejects zero-length uploads before the pipeline runs.
var ErrEmptyInput = errors.New("ingestion: empty input")

const defaultChunkSize = 1000

// Upload is the caller-supplied input for one document.
type Upload struct {
	Data        []byte
	Filename    string
	Title       string
	Description string
	ContentType string
}

// FileStore persists raw binary artifacts and resolves them by relative path.
type FileStore interface {
	SaveDocument(hash string, data []byte) (string, error)
	SaveImage(documentID uuid.UUID, pageNumber, sequence int, data []byte) (string, error)
	ReadFile(rel string) ([]byte, error)
}

// Classifier labels a decoded raster image as diagram-like.
type Classifier interface {
	IsDiagram(img image.Image) bool
}

type Options struct {
	ChunkSize int
}

type Service struct {
	docs       store.DocumentStore
	index      store.EmbeddingIndex
	embedder   embeddings.Embedder
	rasterizer raster.Strategy
	classifier Classifier
	files      FileStore
	extractor  TextExtractor
	logger     *log.Logger
	chunkSize  int
}

func NewService(
	docs store.DocumentStore,
	index store.EmbeddingIndex,
	embedder embeddings.Embedder,
	rasterizer raster.Strategy,
	classifier Classifier,
	files FileStore,
	logger *log.Logger,
	opts Options,
) *Service {
	if logger == nil {
		logger = log.Default()
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &Service{
		docs:       docs,
		index:      index,
		embedder:   embedder,
		rasterizer: rasterizer,
		classifier: classifier,
		files:      files,
		extractor:  DefaultExtractor{},
		logger:     logger,
		chunkSize:  chunkSize,
	}
}

// WithExtractor swaps the text extractor; used by tests.
func (s *Service) WithExtractor(extractor TextExtractor) *Service {
	s.extractor = extractor
	return s
}

// Ingest runs the full pipeline for one upload. Identical bytes short-circuit
// to the existing document without any state transition. A document that
// fails a fatal stage is returned with status FAILED and a nil error; a
// non-nil error means the document record itself could not be managed.
func (s *Service) Ingest(ctx context.Context, up Upload) (*store.Document, error) {
	if len(up.Data) == 0 {
		return nil, ErrEmptyInput
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}

	hash := ContentHash(up.Data)

	existing, err := s.docs.FindDocumentByHash(ctx, hash)
	if err == nil {
		s.logger.Printf("document already exists with id %s, skipping", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	title := up.Title
	if title == "" {
		title = up.Filename
	}

	doc := &store.Document{
		ID:          uuid.New(),
		Title:       title,
		Filename:    up.Filename,
		ContentType: up.ContentType,
		FileSize:    int64(len(up.Data)),
		Description: up.Description,
		ContentHash: hash,
		Status:      store.StatusProcessing,
		UploadedAt:  time.Now(),
	}

	if s.files != nil {
		path, err := s.files.SaveDocument(hash, up.Data)
		if err != nil {
			s.logger.Printf("store raw upload for %s: %v", doc.ID, err)
		} else {
			doc.StoragePath = path
		}
	}

	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		if errors.Is(err, store.ErrHashExists) {
			// Lost the race against a concurrent identical upload.
			return s.docs.FindDocumentByHash(ctx, hash)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.process(ctx, doc, up.Data)
	return doc, nil
}

// Reprocess re-runs the pipeline for an existing document using its stored
// bytes. Chunks, images, and embedding records are replaced as a unit.
func (s *Service) Reprocess(ctx context.Context, documentID uuid.UUID) (*store.Document, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if s.files == nil || doc.StoragePath == "" {
		return nil, fmt.Errorf("document %s has no stored bytes to reprocess", documentID)
	}
	data, err := s.files.ReadFile(doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("load stored document: %w", err)
	}

	doc.Status = store.StatusProcessing
	doc.ProcessedAt = nil
	if err := s.docs.UpdateDocumentStatus(ctx, doc.ID, doc.Status, doc.PageCount, nil); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	s.process(ctx, doc, data)
	return doc, nil
}

// process runs the stages and records the terminal state. Stage-fatal errors
// set FAILED; partial artifacts persisted before the failure are kept.
func (s *Service) process(ctx context.Context, doc *store.Document, data []byte) {
	status := store.StatusProcessed
	if err := s.runStages(ctx, doc, data); err != nil {
		s.logger.Printf("processing failed for document %s: %v", doc.ID, err)
		status = store.StatusFailed
	}

	doc.Status = status
	doc.ProcessedAt = nil
	if status == store.StatusProcessed {
		now := time.Now()
		doc.ProcessedAt = &now
	}

	if err := s.docs.UpdateDocumentStatus(ctx, doc.ID, doc.Status, doc.PageCount, doc.ProcessedAt); err != nil {
		s.logger.Printf("update status for document %s: %v", doc.ID, err)
	}
}

func (s *Service) runStages(ctx context.Context, doc *store.Document, data []byte) error {
	pages, err := s.extractor.Extract(data, doc.ContentType)
	if err != nil {
		return fmt.Errorf("text stage: %w", err)
	}
	doc.PageCount = len(pages)

	chunks := s.buildChunks(doc.ID, pages)
	if err := s.docs.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("chunk stage: %w", err)
	}
	s.logger.Printf("document %s: persisted %d chunks across %d pages", doc.ID, len(chunks), len(pages))

	if err := s.processImages(ctx, doc, data); err != nil {
		return fmt.Errorf("image stage: %w", err)
	}

	if err := s.syncEmbeddings(ctx, doc, chunks); err != nil {
		return fmt.Errorf("embedding stage: %w", err)
	}

	return nil
}

// buildChunks turns per-page text into ordered chunk rows. Pages are walked
// in ascending order; chunk sequences restart at 0 on every page.
func (s *Service) buildChunks(documentID uuid.UUID, pages Pages) []store.Chunk {
	pageNumbers := make([]int, 0, len(pages))
	for page := range pages {
		pageNumbers = append(pageNumbers, page)
	}
	sort.Ints(pageNumbers)

	chunks := make([]store.Chunk, 0)
	for _, page := range pageNumbers {
		for i, text := range SplitTextIntoChunks(pages[page], s.chunkSize) {
			chunks = append(chunks, store.Chunk{
				ID:            uuid.New(),
				DocumentID:    documentID,
				PageNumber:    page,
				ChunkSequence: i,
				Content:       text,
			})
		}
	}
	return chunks
}

// processImages extracts, classifies, and persists page images. Per-page and
// per-image failures are logged and skipped; only persistence failures are
// stage-fatal.
func (s *Service) processImages(ctx context.Context, doc *store.Document, data []byte) error {
	if s.rasterizer == nil || !isPDF(doc.ContentType) {
		return nil
	}

	pageImages, err := s.rasterizer.ExtractPages(ctx, data)
	if err != nil {
		// No images could be produced at all; the document can still
		// reach PROCESSED on its text alone.
		s.logger.Printf("document %s: image extraction produced nothing: %v", doc.ID, err)
		pageImages = nil
	}

	// The image rows always reflect the current run, so a prior run's
	// images never survive a reprocess that produced none.
	if err := s.docs.DeleteImages(ctx, doc.ID); err != nil {
		return err
	}

	images := make([]store.Image, 0, len(pageImages))
	for _, pi := range pageImages {
		img, _, err := image.Decode(bytes.NewReader(pi.Data))
		if err != nil {
			s.logger.Printf("document %s page %d: decode image %d: %v", doc.ID, pi.PageNumber, pi.Sequence, err)
			continue
		}

		isDiagram := false
		if s.classifier != nil {
			isDiagram = s.classifier.IsDiagram(img)
		}

		label := "Image"
		if isDiagram {
			label = "Diagram"
		}

		path := ""
		if s.files != nil {
			path, err = s.files.SaveImage(doc.ID, pi.PageNumber, pi.Sequence, pi.Data)
			if err != nil {
				s.logger.Printf("document %s page %d: store image %d: %v", doc.ID, pi.PageNumber, pi.Sequence, err)
				continue
			}
		}

		images = append(images, store.Image{
			ID:            uuid.New(),
			DocumentID:    doc.ID,
			PageNumber:    pi.PageNumber,
			ImageSequence: pi.Sequence,
			X:             pi.X,
			Y:             pi.Y,
			Width:         float64(pi.Width),
			Height:        float64(pi.Height),
			ImagePath:     path,
			Format:        "png",
			IsDiagram:     isDiagram,
			Caption:       fmt.Sprintf("%s %d on page %d", label, pi.Sequence+1, pi.PageNumber),
		})
	}

	if err := s.docs.InsertImages(ctx, images); err != nil {
		return err
	}
	s.logger.Printf("document %s: persisted %d images", doc.ID, len(images))
	return nil
}

// syncEmbeddings replaces the document's slice of the vector index with
// records for the current chunk set. Individual chunk failures are skipped;
// if every chunk fails the backend is considered down and the stage fails.
func (s *Service) syncEmbeddings(ctx context.Context, doc *store.Document, chunks []store.Chunk) error {
	if err := s.index.DeleteByDocument(ctx, doc.ID); err != nil {
		return err
	}

	succeeded := 0
	for _, chunk := range chunks {
		vectors, err := s.embedder.Embed(ctx, []string{chunk.Content})
		if err != nil || len(vectors) != 1 {
			s.logger.Printf("document %s page %d chunk %d: embed failed: %v", doc.ID, chunk.PageNumber, chunk.ChunkSequence, err)
			continue
		}

		record := store.EmbeddingRecord{
			DocumentID:    doc.ID,
			PageNumber:    chunk.PageNumber,
			ChunkSequence: chunk.ChunkSequence,
			Content:       chunk.Content,
			Embedding:     vectors[0],
			Metadata: map[string]any{
				"filename": doc.Filename,
				"title":    doc.Title,
				"page":     chunk.PageNumber,
				"chunk":    chunk.ChunkSequence,
			},
		}
		if err := s.index.Upsert(ctx, record); err != nil {
			return err
		}
		succeeded++
	}

	if len(chunks) > 0 && succeeded == 0 {
		return fmt.Errorf("embedding backend unavailable: all %d chunks failed", len(chunks))
	}

	s.logger.Printf("document %s: indexed %d/%d chunk embeddings", doc.ID, succeeded, len(chunks))
	return nil
}

// PageSeparator delimits pages when chunked text is reassembled for display.
const PageSeparator = "--- Page %d ---"

// ReassembleText joins a document's chunks back into display text with an
// explicit marker at every page boundary. Chunks must already be ordered by
// (page, sequence), which is how the store returns them.
func ReassembleText(chunks []store.Chunk) string {
	var b strings.Builder
	currentPage := 0
	for _, chunk := range chunks {
		if chunk.PageNumber != currentPage {
			if currentPage != 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, PageSeparator, chunk.PageNumber)
			b.WriteString("\n\n")
			currentPage = chunk.PageNumber
		}
		b.WriteString(chunk.Content)
	}
	return b.String()
}
