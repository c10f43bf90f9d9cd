package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/metrics"
)

const (
	stuckBatchSize = 100
	auditPageSize  = 100
)

// ReindexService rebuilds index entries from the metadata store, which is
// the source of truth.
type ReindexService struct {
	meta    MetadataStore
	indexer ChunkIndexer
	queue   ReindexQueue
	logger  *zap.Logger
}

// NewReindexService creates a ReindexService. queue may be nil when the
// metadata backend has no job table.
func NewReindexService(meta MetadataStore, indexer ChunkIndexer, queue ReindexQueue, logger *zap.Logger) *ReindexService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReindexService{meta: meta, indexer: indexer, queue: queue, logger: logger}
}

// Rebuild replaces a document's index entries with its saved chunks and
// marks it ready. Failed documents and documents whose saved chunks do not
// match the recorded count are rejected without touching the index.
func (s *ReindexService) Rebuild(ctx context.Context, documentID string) (int, error) {
	doc, err := s.meta.GetDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if doc.Status == domain.DocumentStatusFailed {
		return 0, domain.ErrDocumentFailed
	}

	chunks, err := s.meta.ListChunks(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to list chunks: %w", err)
	}
	if want := doc.WantChunks(); want == 0 || len(chunks) != want {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeIncomplete, domain.ErrIncompleteChunks.Message,
			errors.New(incompleteReason(len(chunks), want)))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	indexed, err := s.indexer.Reindex(ctx, documentID, texts)
	if err != nil {
		return 0, err
	}
	stored, err := s.indexer.Count(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if indexed != len(chunks) || stored != len(chunks) {
		metrics.ConsistencyWarnings.Inc()
		s.logger.Warn("chunk count mismatch after reindex",
			zap.String("code", domain.ErrCodeConsistency),
			zap.String("document_id", documentID),
			zap.Int("saved", len(chunks)),
			zap.Int("indexed", indexed),
			zap.Int("stored", stored),
		)
	}

	if err := s.meta.MarkReady(ctx, documentID, len(chunks)); err != nil {
		return 0, fmt.Errorf("failed to mark document ready: %w", err)
	}

	s.logger.Info("document reindexed", zap.String("document_id", documentID), zap.Int("chunks", indexed))
	return indexed, nil
}

// Enqueue schedules an asynchronous rebuild.
func (s *ReindexService) Enqueue(ctx context.Context, documentID, reason string) (*domain.ReindexJob, error) {
	if s.queue == nil {
		return nil, domain.ConfigurationError("reindex queue requires the postgres metadata backend")
	}
	if _, err := s.meta.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.queue.Enqueue(ctx, documentID, reason)
}

// EnqueueStuck handles every document that has been in processing longer
// than olderThan. Documents whose chunks were all saved get a rebuild job.
// The rest can never be rebuilt from the metadata store and are marked
// failed. It returns the number enqueued.
func (s *ReindexService) EnqueueStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.queue == nil {
		return 0, domain.ConfigurationError("reindex queue requires the postgres metadata backend")
	}

	docs, err := s.meta.ListStuck(ctx, time.Now().UTC().Add(-olderThan), stuckBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stuck documents: %w", err)
	}

	enqueued := 0
	for _, doc := range docs {
		log := s.logger.With(zap.String("document_id", doc.ID))

		chunks, err := s.meta.ListChunks(ctx, doc.ID)
		if err != nil {
			log.Error("failed to list chunks of stuck document", zap.Error(err))
			continue
		}
		if want := doc.WantChunks(); want == 0 || len(chunks) != want {
			reason := incompleteReason(len(chunks), want)
			if err := s.meta.MarkFailed(ctx, doc.ID, reason); err != nil {
				log.Error("failed to mark stuck document failed", zap.Error(err))
				continue
			}
			log.Warn("stuck document marked failed", zap.String("reason", reason))
			continue
		}

		if _, err := s.queue.Enqueue(ctx, doc.ID, domain.ReindexReasonStuck); err != nil {
			log.Error("failed to enqueue stuck document", zap.Error(err))
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

// AuditIndex compares the index entry count of every ready document with
// its recorded chunk count and repairs the ones that drifted, for example
// after a memory-only index restarts empty. Without a queue the rebuild
// runs inline. It returns the number of documents repaired or queued.
func (s *ReindexService) AuditIndex(ctx context.Context) (int, error) {
	repaired := 0
	cursor := ""
	for {
		page, err := s.meta.ListDocuments(ctx, auditPageSize, cursor)
		if err != nil {
			return repaired, fmt.Errorf("failed to list documents: %w", err)
		}

		for _, doc := range page.Items {
			if doc.Status != domain.DocumentStatusReady {
				continue
			}
			stored, err := s.indexer.Count(ctx, doc.ID)
			if err != nil {
				return repaired, err
			}
			if stored == doc.ChunkCount {
				continue
			}

			metrics.ConsistencyWarnings.Inc()
			s.logger.Warn("index entries drifted from metadata store",
				zap.String("code", domain.ErrCodeConsistency),
				zap.String("document_id", doc.ID),
				zap.Int("saved", doc.ChunkCount),
				zap.Int("stored", stored),
			)
			if err := s.repair(ctx, doc.ID); err != nil {
				s.logger.Error("failed to repair drifted document", zap.String("document_id", doc.ID), zap.Error(err))
				continue
			}
			repaired++
		}

		if !page.HasMore || page.Cursor == "" {
			return repaired, nil
		}
		cursor = page.Cursor
	}
}

func (s *ReindexService) repair(ctx context.Context, documentID string) error {
	if s.queue != nil {
		_, err := s.queue.Enqueue(ctx, documentID, domain.ReindexReasonIndexDrift)
		return err
	}
	_, err := s.Rebuild(ctx, documentID)
	return err
}

func incompleteReason(saved, want int) string {
	if want == 0 {
		return fmt.Sprintf("ingestion interrupted before segmentation finished (%d chunks saved)", saved)
	}
	return fmt.Sprintf("ingestion interrupted: saved %d of %d chunks", saved, want)
}
