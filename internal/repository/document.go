package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, filename, source_uri, status, chunk_count, expected_chunks, error, created_at, updated_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, filename, source_uri, status, chunk_count, expected_chunks, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Filename, d.SourceURI, d.Status, d.ChunkCount, d.ExpectedChunks, nullableString(d.Error), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgErrorCode(err) == pgInvalidTextRep {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

// MarkReady only writes when status or count would change, so repeating the
// call leaves updated_at untouched.
func (r *DocumentRepository) MarkReady(ctx context.Context, id string, chunkCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $2, chunk_count = $3, error = NULL, updated_at = $4
		 WHERE id = $1 AND (status <> $2 OR chunk_count <> $3)`,
		id, domain.DocumentStatusReady, chunkCount, time.Now().UTC(),
	)
	if err != nil {
		if pgErrorCode(err) == pgInvalidTextRep {
			return domain.ErrDocumentNotFound
		}
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

// SetExpectedChunks records the segment count of a document that is still
// processing. A document the sweeper already failed yields ErrDocumentFailed.
func (r *DocumentRepository) SetExpectedChunks(ctx context.Context, id string, n int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET expected_chunks = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		id, n, time.Now().UTC(), domain.DocumentStatusProcessing,
	)
	if err != nil {
		if pgErrorCode(err) == pgInvalidTextRep {
			return domain.ErrDocumentNotFound
		}
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrDocumentFailed
	}
	return nil
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id, reason string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $2, error = $3, updated_at = $4 WHERE id = $1`,
		id, domain.DocumentStatusFailed, nullableString(reason), time.Now().UTC(),
	)
	if err != nil {
		if pgErrorCode(err) == pgInvalidTextRep {
			return domain.ErrDocumentNotFound
		}
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// List returns documents newest first using keyset pagination.
func (r *DocumentRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.Document, error) {
	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.CreatedAt, cursor.LastID, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListStuck returns documents still processing that were last touched
// before the given time.
func (r *DocumentRepository) ListStuck(ctx context.Context, updatedBefore time.Time, limit int) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM documents
		 WHERE status = $1 AND updated_at < $2
		 ORDER BY updated_at ASC
		 LIMIT $3`,
		domain.DocumentStatusProcessing, updatedBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var errMsg *string
	if err := row.Scan(&d.ID, &d.Filename, &d.SourceURI, &d.Status, &d.ChunkCount, &d.ExpectedChunks, &errMsg, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if errMsg != nil {
		d.Error = *errMsg
	}
	return &d, nil
}

func scanDocuments(rows pgx.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
