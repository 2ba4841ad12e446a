package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ DocumentStore = (*PostgresStore)(nil)

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, title, filename, content_type, file_size, description,
			content_hash, status, page_count, storage_path, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, doc.ID, doc.Title, doc.Filename, doc.ContentType, doc.FileSize, doc.Description,
		doc.ContentHash, doc.Status, doc.PageCount, doc.StoragePath, doc.UploadedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrHashExists
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.queryDocument(ctx, "id = $1", id)
}

func (s *PostgresStore) FindDocumentByHash(ctx context.Context, hash string) (*Document, error) {
	return s.queryDocument(ctx, "content_hash = $1", hash)
}

func (s *PostgresStore) queryDocument(ctx context.Context, where string, arg any) (*Document, error) {
	var doc Document
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, filename, content_type, file_size, description,
			content_hash, status, page_count, storage_path, uploaded_at, processed_at
		FROM documents WHERE `+where,
		arg,
	).Scan(&doc.ID, &doc.Title, &doc.Filename, &doc.ContentType, &doc.FileSize, &doc.Description,
		&doc.ContentHash, &doc.Status, &doc.PageCount, &doc.StoragePath, &doc.UploadedAt, &doc.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query document: %w", err)
	}
	return &doc, nil
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus, pageCount int, processedAt *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2,
		    page_count = $3,
		    processed_at = $4
		WHERE id = $1
	`, id, status, pageCount, processedAt)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceChunks deletes every chunk of the document and inserts the given set
// in one transaction, so readers never observe a mix of old and new chunks.
func (s *PostgresStore) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for _, chunk := range chunks {
		id := chunk.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, page_number, chunk_sequence, content)
			VALUES ($1, $2, $3, $4, $5)
		`, id, documentID, chunk.PageNumber, chunk.ChunkSequence, chunk.Content); err != nil {
			return fmt.Errorf("insert chunk p%d/%d: %w", chunk.PageNumber, chunk.ChunkSequence, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListChunks(ctx context.Context, documentID uuid.UUID) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, page_number, chunk_sequence, content
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY page_number, chunk_sequence
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]Chunk, 0)
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.PageNumber, &c.ChunkSequence, &c.Content); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *PostgresStore) DeleteImages(ctx context.Context, documentID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM document_images WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertImages(ctx context.Context, images []Image) error {
	for _, img := range images {
		id := img.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO document_images (id, document_id, page_number, image_sequence,
				x, y, width, height, image_path, format, is_diagram, caption)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, id, img.DocumentID, img.PageNumber, img.ImageSequence,
			img.X, img.Y, img.Width, img.Height, img.ImagePath, img.Format, img.IsDiagram, img.Caption); err != nil {
			return fmt.Errorf("insert image p%d/%d: %w", img.PageNumber, img.ImageSequence, err)
		}
	}
	return nil
}

func (s *PostgresStore) ListImages(ctx context.Context, documentID uuid.UUID) ([]Image, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, page_number, image_sequence, x, y, width, height,
			image_path, format, is_diagram, caption
		FROM document_images
		WHERE document_id = $1
		ORDER BY page_number, image_sequence
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	images := make([]Image, 0)
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.DocumentID, &img.PageNumber, &img.ImageSequence,
			&img.X, &img.Y, &img.Width, &img.Height,
			&img.ImagePath, &img.Format, &img.IsDiagram, &img.Caption); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *PostgresStore) GetImage(ctx context.Context, id uuid.UUID) (*Image, error) {
	var img Image
	err := s.pool.QueryRow(ctx, `
		SELECT id, document_id, page_number, image_sequence, x, y, width, height,
			image_path, format, is_diagram, caption
		FROM document_images WHERE id = $1
	`, id).Scan(&img.ID, &img.DocumentID, &img.PageNumber, &img.ImageSequence,
		&img.X, &img.Y, &img.Width, &img.Height,
		&img.ImagePath, &img.Format, &img.IsDiagram, &img.Caption)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query image: %w", err)
	}
	return &img, nil
}
