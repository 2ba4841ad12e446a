// Package search answers similarity queries over the embedding index.
package search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fabfab/docpipe/embeddings"
	"github.com/fabfab/docpipe/store"
)

const defaultLimit = 5

type Service struct {
	index    store.EmbeddingIndex
	embedder embeddings.Embedder
	logger   *log.Logger
}

func NewService(index store.EmbeddingIndex, embedder embeddings.Embedder, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		index:    index,
		embedder: embedder,
		logger:   logger,
	}
}

// Search embeds the query and returns the closest chunks with their document
// metadata, best match first.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.ChunkMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: expected 1, got %d", len(vectors))
	}

	matches, err := s.index.Search(ctx, vectors[0], limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	s.logger.Printf("search %q returned %d matches", query, len(matches))
	return matches, nil
}
