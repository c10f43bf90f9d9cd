package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRepository persists chunk text. Rows are append-only.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func (r *ChunkRepository) Save(ctx context.Context, c *domain.Chunk) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO chunks (document_id, chunk_index, text, created_at) VALUES ($1, $2, $3, $4)`,
		c.DocumentID, c.Index, c.Text, createdAt,
	)
	switch pgErrorCode(err) {
	case "":
		return err
	case pgUniqueViolation:
		return domain.ErrChunkAlreadyExists
	case pgForeignKeyViolation, pgInvalidTextRep:
		return domain.ErrDocumentNotFound
	default:
		return err
	}
}

func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT document_id, chunk_index, text, created_at
		 FROM chunks WHERE document_id = $1
		 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		if pgErrorCode(err) == pgInvalidTextRep {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.DocumentID, &c.Index, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
