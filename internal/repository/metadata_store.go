package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMetadataStore is the document and chunk store backed by Postgres.
type PostgresMetadataStore struct {
	documents *DocumentRepository
	chunks    *ChunkRepository
}

func NewPostgresMetadataStore(pool *pgxpool.Pool) *PostgresMetadataStore {
	return &PostgresMetadataStore{
		documents: NewDocumentRepository(pool),
		chunks:    NewChunkRepository(pool),
	}
}

func (s *PostgresMetadataStore) CreateDocument(ctx context.Context, filename, sourceURI string) (*domain.Document, error) {
	doc := domain.NewDocument(uuid.NewString(), filename, sourceURI, time.Now().UTC().Truncate(time.Microsecond))
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.InvalidInput(err.Error())
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresMetadataStore) SaveChunk(ctx context.Context, documentID string, index int, text string) error {
	c := &domain.Chunk{DocumentID: documentID, Index: index, Text: text}
	if err := domain.ValidateChunk(c); err != nil {
		return domain.InvalidInput(err.Error())
	}
	return s.chunks.Save(ctx, c)
}

func (s *PostgresMetadataStore) SetExpectedChunks(ctx context.Context, documentID string, n int) error {
	if n < 0 {
		return domain.InvalidInput("expected chunk count cannot be negative")
	}
	return s.documents.SetExpectedChunks(ctx, documentID, n)
}

func (s *PostgresMetadataStore) MarkReady(ctx context.Context, documentID string, chunkCount int) error {
	if chunkCount < 0 {
		return domain.InvalidInput("chunk count cannot be negative")
	}
	return s.documents.MarkReady(ctx, documentID, chunkCount)
}

func (s *PostgresMetadataStore) MarkFailed(ctx context.Context, documentID, reason string) error {
	return s.documents.MarkFailed(ctx, documentID, reason)
}

func (s *PostgresMetadataStore) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.chunks.ListByDocument(ctx, documentID)
}

func (s *PostgresMetadataStore) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.documents.GetByID(ctx, documentID)
}

func (s *PostgresMetadataStore) ListDocuments(ctx context.Context, limit int, cursor string) (*pagination.PageResult[*domain.Document], error) {
	limit = pagination.NormalizeLimit(limit)
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.InvalidInput(err.Error())
	}

	docs, err := s.documents.List(ctx, c, limit+1)
	if err != nil {
		return nil, err
	}
	return pagination.Page(docs, limit, documentID, documentCreatedAt), nil
}

func (s *PostgresMetadataStore) ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Document, error) {
	return s.documents.ListStuck(ctx, updatedBefore, pagination.NormalizeLimit(limit))
}

func documentID(d *domain.Document) string { return d.ID }

func documentCreatedAt(d *domain.Document) time.Time { return d.CreatedAt }
