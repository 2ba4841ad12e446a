// Package storage persists raw binary artifacts (uploads, page images) on
// disk and addresses them by stable relative paths.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	documentsDir = "documents"
	imagesDir    = "images"
)

type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, documentsDir), filepath.Join(root, imagesDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// SaveDocument stores the raw upload under its content hash and returns the
// relative path. Re-saving the same hash overwrites the identical bytes, so
// the operation is idempotent.
func (s *Store) SaveDocument(hash string, data []byte) (string, error) {
	rel := filepath.Join(documentsDir, hash)
	if err := os.WriteFile(filepath.Join(s.root, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("write document %s: %w", hash, err)
	}
	return rel, nil
}

// SaveImage stores a PNG page image and returns its relative path. The
// random suffix keeps reprocessing runs from clobbering files that older
// image rows may still reference.
func (s *Store) SaveImage(documentID uuid.UUID, pageNumber, sequence int, data []byte) (string, error) {
	name := fmt.Sprintf("%s_p%d_%d_%s.png", documentID, pageNumber, sequence, uuid.NewString()[:8])
	rel := filepath.Join(imagesDir, name)
	if err := os.WriteFile(filepath.Join(s.root, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", name, err)
	}
	return rel, nil
}

// ReadFile resolves a stored relative path back to its bytes. Paths escaping
// the storage root are rejected.
func (s *Store) ReadFile(rel string) ([]byte, error) {
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid storage path %q", rel)
	}
	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", clean, err)
	}
	return data, nil
}
