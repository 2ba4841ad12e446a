package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the hex-encoded SHA-256 digest of the raw upload bytes.
// It is the deduplication key: two uploads with identical bytes map to the
// same document regardless of filename or metadata.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
