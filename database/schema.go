package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the relational tables and the pgvector-backed embedding
// index if they do not exist. The dimension fixes the width of the vector
// column and must match the configured embedding backend.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			title TEXT,
			filename TEXT NOT NULL,
			content_type TEXT,
			file_size BIGINT NOT NULL,
			description TEXT,
			content_hash TEXT UNIQUE NOT NULL,
			status TEXT NOT NULL,
			page_count INT NOT NULL DEFAULT 0,
			storage_path TEXT,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			page_number INT NOT NULL,
			chunk_sequence INT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, page_number, chunk_sequence)
		)`,
		`CREATE TABLE IF NOT EXISTS document_images (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			page_number INT NOT NULL,
			image_sequence INT NOT NULL,
			x REAL,
			y REAL,
			width REAL NOT NULL,
			height REAL NOT NULL,
			image_path TEXT NOT NULL,
			format TEXT NOT NULL,
			is_diagram BOOLEAN NOT NULL DEFAULT FALSE,
			caption TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, page_number, image_sequence)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_embeddings (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			page_number INT NOT NULL,
			chunk_sequence INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, page_number, chunk_sequence)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id, page_number, chunk_sequence)",
		"CREATE INDEX IF NOT EXISTS idx_document_images_document ON document_images(document_id, page_number)",
		"CREATE INDEX IF NOT EXISTS idx_document_embeddings_document ON document_embeddings(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_document_embeddings_vector ON document_embeddings USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
