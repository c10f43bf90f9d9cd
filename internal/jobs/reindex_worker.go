package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/logging"
	"github.com/cloo-solutions/ragdoc/internal/metrics"
	"github.com/cloo-solutions/ragdoc/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// ReindexJobRepository claims and updates reindex jobs.
type ReindexJobRepository interface {
	// GetPendingJobs retrieves and claims pending reindex jobs
	GetPendingJobs(ctx context.Context) ([]*domain.ReindexJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.ReindexJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
}

// Rebuilder restores a document's index entries from the metadata store.
type Rebuilder interface {
	Rebuild(ctx context.Context, documentID string) (int, error)
}

// ReindexWorker drains the reindex queue.
type ReindexWorker struct {
	repo      ReindexJobRepository
	rebuilder Rebuilder
	logger    *zap.Logger
}

func NewReindexWorker(repo ReindexJobRepository, rebuilder Rebuilder, logger *zap.Logger) *ReindexWorker {
	return &ReindexWorker{repo: repo, rebuilder: rebuilder, logger: logging.OrNop(logger)}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReindexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("processing pending reindex jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("error processing job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	return nil
}

func (w *ReindexWorker) processJob(ctx context.Context, job *domain.ReindexJob) error {
	log := w.logger.With(zap.String("job_id", job.ID), zap.String("document_id", job.DocumentID))
	log.Info("processing reindex job", zap.String("reason", job.Reason))

	if _, err := w.rebuilder.Rebuild(ctx, job.DocumentID); err != nil {
		return w.handleJobFailure(ctx, log, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReindexJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	metrics.ReindexJobs.WithLabelValues("success").Inc()
	log.Info("reindex job completed")
	return nil
}

// handleJobFailure retries up to MaxRetries. Jobs that can never succeed
// fail at once; see isPermanent.
func (w *ReindexWorker) handleJobFailure(ctx context.Context, log *zap.Logger, job *domain.ReindexJob, jobErr error) error {
	log.Warn("reindex job failed", zap.Error(jobErr))

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	permanent := isPermanent(jobErr)
	if permanent || job.Retries+1 >= MaxRetries {
		metrics.ReindexJobs.WithLabelValues("failed").Inc()
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if permanent {
			errMsg = fmt.Sprintf("not retryable: %v", jobErr)
		}
		log.Error("marking reindex job as failed", zap.String("error_message", errMsg))
		telemetry.CaptureError(ctx, jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReindexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	metrics.ReindexJobs.WithLabelValues("retry").Inc()
	log.Info("reindex job will be retried", zap.Int32("attempt", job.Retries+1), zap.Int("max_retries", MaxRetries))
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReindexJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}

// isPermanent reports errors a retry cannot fix: the document is gone or
// failed, or its saved chunks cannot reproduce it.
func isPermanent(err error) bool {
	switch domain.CodeOf(err) {
	case domain.ErrCodeNotFound, domain.ErrCodeValidation, domain.ErrCodeNoContent, domain.ErrCodeIncomplete:
		return true
	}
	return false
}

// StuckEnqueuer schedules rebuilds for documents stuck in processing.
type StuckEnqueuer interface {
	EnqueueStuck(ctx context.Context, olderThan time.Duration) (int, error)
}

// StuckSweeper is a JobProcessor that periodically enqueues stuck documents.
type StuckSweeper struct {
	enqueuer  StuckEnqueuer
	olderThan time.Duration
	logger    *zap.Logger
}

func NewStuckSweeper(enqueuer StuckEnqueuer, olderThan time.Duration, logger *zap.Logger) *StuckSweeper {
	return &StuckSweeper{enqueuer: enqueuer, olderThan: olderThan, logger: logging.OrNop(logger)}
}

func (s *StuckSweeper) ProcessJobs(ctx context.Context) error {
	n, err := s.enqueuer.EnqueueStuck(ctx, s.olderThan)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("enqueued stuck documents", zap.Int("count", n))
	}
	return nil
}

// IndexAuditor checks whether the index still holds every ready
// document's entries.
type IndexAuditor interface {
	AuditIndex(ctx context.Context) (int, error)
}

// IndexAudit is a JobProcessor that repairs documents whose index entries
// drifted from the metadata store.
type IndexAudit struct {
	auditor IndexAuditor
	logger  *zap.Logger
}

func NewIndexAudit(auditor IndexAuditor, logger *zap.Logger) *IndexAudit {
	return &IndexAudit{auditor: auditor, logger: logging.OrNop(logger)}
}

func (a *IndexAudit) ProcessJobs(ctx context.Context) error {
	n, err := a.auditor.AuditIndex(ctx)
	if n > 0 {
		a.logger.Info("repaired drifted documents", zap.Int("count", n))
	}
	return err
}
