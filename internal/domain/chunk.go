package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Chunk is one trimmed, non-empty slice of a document's extracted text.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	CreatedAt  time.Time
}

// EmbeddingRecord is the vector index entry for one chunk.
type EmbeddingRecord struct {
	Key        string
	DocumentID string
	Index      int
	Text       string
	Vector     []float32
}

// CompositeKey encodes a chunk identity as "{document_id}_{index}".
func CompositeKey(documentID string, index int) string {
	return documentID + "_" + strconv.Itoa(index)
}

// ParseCompositeKey splits a composite key at its last underscore.
func ParseCompositeKey(key string) (string, int, error) {
	pos := strings.LastIndex(key, "_")
	if pos <= 0 || pos == len(key)-1 {
		return "", 0, fmt.Errorf("malformed composite key %q", key)
	}
	index, err := strconv.Atoi(key[pos+1:])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("malformed composite key %q", key)
	}
	return key[:pos], index, nil
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}
	if c.Index < 0 {
		return fmt.Errorf("chunk Index cannot be negative")
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("chunk Text cannot be empty")
	}
	return nil
}
