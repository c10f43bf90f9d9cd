package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reindexJobColumns = `id, document_id, reason, status, retries, error, created_at, claimed_at, processed_at`

// DefaultClaimTimeout is how long a claimed job may stay in processing
// before another worker takes it over.
const DefaultClaimTimeout = 10 * time.Minute

type ReindexJobRepository struct {
	db           dbtx
	claimTimeout time.Duration
}

type ReindexJobOption func(*ReindexJobRepository)

// WithClaimTimeout sets how long a job may stay claimed. A worker that
// stops mid-job leaves it in processing; it is reclaimed after d.
func WithClaimTimeout(d time.Duration) ReindexJobOption {
	return func(r *ReindexJobRepository) {
		if d > 0 {
			r.claimTimeout = d
		}
	}
}

func NewReindexJobRepository(pool *pgxpool.Pool, opts ...ReindexJobOption) *ReindexJobRepository {
	r := &ReindexJobRepository{db: pool, claimTimeout: DefaultClaimTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ReindexJobRepository) Create(ctx context.Context, job *domain.ReindexJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO reindex_jobs (id, document_id, reason, status, retries, error, created_at, claimed_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.DocumentID, job.Reason, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ClaimedAt, job.ProcessedAt,
	)
	if code := pgErrorCode(err); code == pgForeignKeyViolation || code == pgInvalidTextRep {
		return domain.ErrDocumentNotFound
	}
	return err
}

// Enqueue schedules a rebuild for a document. A job already pending for the
// same document is returned instead of creating a duplicate.
func (r *ReindexJobRepository) Enqueue(ctx context.Context, documentID, reason string) (*domain.ReindexJob, error) {
	existing, err := scanReindexJob(r.db.QueryRow(ctx,
		`SELECT `+reindexJobColumns+`
		 FROM reindex_jobs
		 WHERE document_id = $1 AND status = $2
		 ORDER BY created_at ASC
		 LIMIT 1`,
		documentID, domain.ReindexJobStatusPending,
	))
	if err == nil {
		return existing, nil
	}
	if pgErrorCode(err) == pgInvalidTextRep {
		return nil, domain.ErrDocumentNotFound
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	job := domain.NewReindexJob(uuid.NewString(), documentID, reason, time.Now().UTC())
	if err := r.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *ReindexJobRepository) GetByID(ctx context.Context, id string) (*domain.ReindexJob, error) {
	job, err := scanReindexJob(r.db.QueryRow(ctx,
		`SELECT `+reindexJobColumns+` FROM reindex_jobs WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgErrorCode(err) == pgInvalidTextRep {
			return nil, domain.ErrReindexJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending moves up to limit pending jobs to processing. Jobs left in
// processing longer than the claim timeout are claimed again. Concurrent
// workers never claim the same row.
func (r *ReindexJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ReindexJob, error) {
	if limit <= 0 {
		limit = 100
	}
	now := time.Now().UTC()

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM reindex_jobs
			 WHERE status = $1
			    OR (status = $3 AND (claimed_at IS NULL OR claimed_at < $4))
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE reindex_jobs
		 SET status = $3,
		     error = NULL,
		     claimed_at = $5,
		     processed_at = NULL
		 FROM cte
		 WHERE reindex_jobs.id = cte.id
		 RETURNING reindex_jobs.id, reindex_jobs.document_id, reindex_jobs.reason, reindex_jobs.status,
		           reindex_jobs.retries, reindex_jobs.error, reindex_jobs.created_at, reindex_jobs.claimed_at,
		           reindex_jobs.processed_at`,
		domain.ReindexJobStatusPending, limit, domain.ReindexJobStatusProcessing, now.Add(-r.claimTimeout), now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ReindexJob
	for rows.Next() {
		job, err := scanReindexJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *ReindexJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ReindexJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.ReindexJobStatusCompleted || status == domain.ReindexJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reindex_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReindexJobNotFound
	}
	return nil
}

func (r *ReindexJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reindex_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReindexJobNotFound
	}
	return nil
}

func (r *ReindexJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.ReindexJob, error) {
	return r.ClaimPending(ctx, 100)
}

func (r *ReindexJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.ReindexJobStatus, errMsg string) error {
	return r.UpdateStatus(ctx, jobID, status, errMsg)
}

func scanReindexJob(row pgx.Row) (*domain.ReindexJob, error) {
	var job domain.ReindexJob
	var errMsg pgtype.Text
	if err := row.Scan(&job.ID, &job.DocumentID, &job.Reason, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ClaimedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}
