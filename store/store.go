// Package store persists documents, chunks, images, and embedding records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "UPLOADED"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusProcessed  DocumentStatus = "PROCESSED"
	StatusFailed     DocumentStatus = "FAILED"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrHashExists is returned when a document with the same content hash
	// was inserted concurrently; callers should re-fetch by hash.
	ErrHashExists = errors.New("store: content hash already exists")
)

type Document struct {
	ID          uuid.UUID
	Title       string
	Filename    string
	ContentType string
	FileSize    int64
	Description string
	ContentHash string
	Status      DocumentStatus
	PageCount   int
	StoragePath string
	UploadedAt  time.Time
	ProcessedAt *time.Time
}

type Chunk struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	PageNumber    int
	ChunkSequence int
	Content       string
}

type Image struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	PageNumber    int
	ImageSequence int

	// X and Y are nil when the extraction strategy could not recover a
	// position from the page content stream.
	X *float64
	Y *float64

	Width  float64
	Height float64

	ImagePath string
	Format    string
	IsDiagram bool
	Caption   string
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	FindDocumentByHash(ctx context.Context, hash string) (*Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, pageCount int, processedAt *time.Time) error

	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) error
	ListChunks(ctx context.Context, documentID uuid.UUID) ([]Chunk, error)

	DeleteImages(ctx context.Context, documentID uuid.UUID) error
	InsertImages(ctx context.Context, images []Image) error
	ListImages(ctx context.Context, documentID uuid.UUID) ([]Image, error)
	GetImage(ctx context.Context, id uuid.UUID) (*Image, error)
}
