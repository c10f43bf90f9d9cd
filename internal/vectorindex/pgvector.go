package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/ragdoc/internal/domain"
)

// PGVector stores embeddings in the chunk_embeddings table and ranks with
// the cosine distance operator.
type PGVector struct {
	pool *pgxpool.Pool
}

func NewPGVector(pool *pgxpool.Pool) *PGVector {
	return &PGVector{pool: pool}
}

// Upsert writes all records in one batch.
func (p *PGVector) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO chunk_embeddings (key, document_id, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (key) DO UPDATE
			 SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`,
			rec.Key, rec.DocumentID, rec.Index, rec.Text, pgvector.NewVector(rec.Vector),
		)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting embedding %s: %w", records[i].Key, err)
		}
	}
	return nil
}

// Query orders by cosine distance; score is 1 - distance.
func (p *PGVector) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT key, document_id, chunk_index, content, 1 - (embedding <=> $1) AS score
		 FROM chunk_embeddings
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(vector), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var m Match
		var score float64
		if err := rows.Scan(&m.Key, &m.DocumentID, &m.Index, &m.Text, &score); err != nil {
			return nil, err
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (p *PGVector) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM chunk_embeddings WHERE document_id = $1`, documentID)
	return err
}

func (p *PGVector) CountDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunk_embeddings WHERE document_id = $1`,
		documentID,
	).Scan(&n)
	return n, err
}
