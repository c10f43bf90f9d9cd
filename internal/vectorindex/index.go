// Package vectorindex stores chunk embeddings and answers cosine
// nearest-neighbour queries. Backends: pgvector, chromem-go, Qdrant.
package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/ragdoc/internal/domain"
)

// Payload keys shared by every backend.
const (
	FieldKey        = "key"
	FieldDocumentID = "document_id"
	FieldIndex      = "chunk_index"
	FieldContent    = "content"
)

// ErrDimensionMismatch is returned when a record's vector does not match the
// collection's configured size.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Match is one query hit.
type Match struct {
	Key        string
	DocumentID string
	Index      int
	Text       string
	Score      float32
}

// Index is the storage contract the gateway relies on. Query clamps topK to
// the records available and returns an empty slice for an empty index.
type Index interface {
	Upsert(ctx context.Context, records []domain.EmbeddingRecord) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	DeleteDocument(ctx context.Context, documentID string) error
	CountDocument(ctx context.Context, documentID string) (int, error)
}

// checkDimensions rejects records whose vector length differs from size.
func checkDimensions(records []domain.EmbeddingRecord, size int) error {
	for _, rec := range records {
		if len(rec.Vector) != size {
			return fmt.Errorf("%w: record %s has %d dimensions, collection expects %d", ErrDimensionMismatch, rec.Key, len(rec.Vector), size)
		}
	}
	return nil
}
