package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/pagination"
	"github.com/cloo-solutions/ragdoc/internal/vectorindex"
)

// MetadataStore records per-document status and per-chunk text. It is the
// source of truth; the vector index is derived from it.
type MetadataStore interface {
	CreateDocument(ctx context.Context, filename, sourceURI string) (*domain.Document, error)
	SetExpectedChunks(ctx context.Context, documentID string, n int) error
	SaveChunk(ctx context.Context, documentID string, index int, text string) error
	MarkReady(ctx context.Context, documentID string, chunkCount int) error
	MarkFailed(ctx context.Context, documentID, reason string) error
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	ListDocuments(ctx context.Context, limit int, cursor string) (*pagination.PageResult[*domain.Document], error)
	ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Document, error)
}

// ReindexQueue schedules a rebuild of a document's index entries.
type ReindexQueue interface {
	Enqueue(ctx context.Context, documentID, reason string) (*domain.ReindexJob, error)
}

// ObjectStore keeps the uploaded bytes and returns a retrievable URI.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// ChunkIndexer writes a document's chunks to the vector index and reports
// how many entries the index holds for it.
type ChunkIndexer interface {
	Index(ctx context.Context, documentID string, chunks []string) (int, error)
	Reindex(ctx context.Context, documentID string, chunks []string) (int, error)
	Count(ctx context.Context, documentID string) (int, error)
}

// ContextRetriever returns the chunks most similar to a question.
type ContextRetriever interface {
	Query(ctx context.Context, question string, topK int) ([]string, error)
	QueryMatches(ctx context.Context, question string, topK int) ([]vectorindex.Match, error)
}

// TextExtractor turns PDF bytes into plain text. An empty string means the
// document has no extractable text.
type TextExtractor interface {
	ExtractText(ctx context.Context, content []byte) (string, error)
}

// Generator is the completion backend capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// UUIDGenerator produces object keys and ids.
type UUIDGenerator interface {
	Generate() string
}

// DefaultUUIDGenerator generates random v4 UUIDs.
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) Generate() string {
	return uuid.NewString()
}
