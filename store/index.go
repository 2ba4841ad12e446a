package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRecord ties a fixed-length vector to one chunk of one document.
type EmbeddingRecord struct {
	DocumentID    uuid.UUID
	PageNumber    int
	ChunkSequence int
	Content       string
	Embedding     []float32
	Metadata      map[string]any
}

// ChunkMatch is a similarity search hit joined with its document metadata.
type ChunkMatch struct {
	DocumentID    uuid.UUID
	Title         string
	Filename      string
	PageNumber    int
	ChunkSequence int
	Content       string
	Score         float64
}

// EmbeddingIndex is the vector index contract: wholesale replacement per
// document plus per-chunk upsert and nearest-neighbor search.
type EmbeddingIndex interface {
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
	Upsert(ctx context.Context, record EmbeddingRecord) error
	Search(ctx context.Context, embedding []float32, limit int) ([]ChunkMatch, error)
}

type PostgresIndex struct {
	pool *pgxpool.Pool
}

func NewPostgresIndex(pool *pgxpool.Pool) *PostgresIndex {
	return &PostgresIndex{pool: pool}
}

var _ EmbeddingIndex = (*PostgresIndex)(nil)

func (s *PostgresIndex) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM document_embeddings WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}

func (s *PostgresIndex) Upsert(ctx context.Context, record EmbeddingRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal embedding metadata: %w", err)
	}

	vec := pgvector.NewVector(record.Embedding)
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO document_embeddings (id, document_id, page_number, chunk_sequence, content, embedding, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (document_id, page_number, chunk_sequence)
		DO UPDATE SET content = EXCLUDED.content,
		              embedding = EXCLUDED.embedding,
		              metadata = EXCLUDED.metadata,
		              updated_at = NOW()
	`, uuid.New(), record.DocumentID, record.PageNumber, record.ChunkSequence, record.Content, vec, metadata); err != nil {
		return fmt.Errorf("upsert embedding p%d/%d: %w", record.PageNumber, record.ChunkSequence, err)
	}
	return nil
}

func (s *PostgresIndex) Search(ctx context.Context, embedding []float32, limit int) ([]ChunkMatch, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		limit = 5
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := limit * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT
            de.document_id,
            d.title,
            d.filename,
            de.page_number,
            de.chunk_sequence,
            de.content,
            (de.embedding <-> $1::vector) AS distance
        FROM document_embeddings de
        JOIN documents d ON d.id = de.document_id
        ORDER BY de.embedding <-> $1::vector
        LIMIT $2
    `, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]ChunkMatch, 0)
	for rows.Next() {
		var m ChunkMatch
		var distance float64
		if scanErr := rows.Scan(&m.DocumentID, &m.Title, &m.Filename, &m.PageNumber, &m.ChunkSequence, &m.Content, &distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		m.Score = 1 / (1 + distance)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
