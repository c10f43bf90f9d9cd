package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/metrics"
	"github.com/cloo-solutions/ragdoc/internal/telemetry"
)

const (
	objectKeyPrefix = "documents/"
	pdfContentType  = "application/pdf"
)

// IngestInput is an uploaded file.
type IngestInput struct {
	Filename string
	Content  []byte
}

// IngestResult is returned only after the document is marked ready.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunks"`
}

// IngestionService runs the upload pipeline: store, record, extract,
// segment, persist, index, mark ready. It never retries internally.
type IngestionService struct {
	objects   ObjectStore
	meta      MetadataStore
	extractor TextExtractor
	indexer   ChunkIndexer
	queue     ReindexQueue
	uuidGen   UUIDGenerator
	chunkCfg  ChunkConfig
	logger    *zap.Logger
}

type IngestionOption func(*IngestionService)

// WithReindexQueue enables enqueueing repair jobs when indexing fails or
// the indexed count disagrees with the saved count.
func WithReindexQueue(q ReindexQueue) IngestionOption {
	return func(s *IngestionService) { s.queue = q }
}

func WithChunkConfig(cfg ChunkConfig) IngestionOption {
	return func(s *IngestionService) { s.chunkCfg = cfg }
}

func WithUUIDGenerator(g UUIDGenerator) IngestionOption {
	return func(s *IngestionService) { s.uuidGen = g }
}

func NewIngestionService(
	objects ObjectStore,
	meta MetadataStore,
	extractor TextExtractor,
	indexer ChunkIndexer,
	logger *zap.Logger,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		objects:   objects,
		meta:      meta,
		extractor: extractor,
		indexer:   indexer,
		uuidGen:   &DefaultUUIDGenerator{},
		chunkCfg:  DefaultChunkConfig(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *IngestionService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if !strings.EqualFold(path.Ext(in.Filename), ".pdf") {
		return nil, domain.ErrNotPDF
	}
	if len(in.Content) == 0 {
		return nil, domain.ErrEmptyFile
	}

	ctx, span := telemetry.StartSpan(ctx, "ingestion.ingest", telemetry.SpanAttributes{Operation: "ingest"})
	defer span.End()

	result, err := s.ingest(ctx, in, span)
	switch {
	case err == nil:
		metrics.IngestTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		metrics.IngestChunks.Observe(float64(result.ChunkCount))
	case domain.IsCode(err, domain.ErrCodeNoContent):
		metrics.IngestTotal.WithLabelValues(metrics.ResultNoContent).Inc()
	default:
		metrics.IngestTotal.WithLabelValues(metrics.ResultError).Inc()
		span.SetError(err)
	}
	return result, err
}

func (s *IngestionService) ingest(ctx context.Context, in IngestInput, span *telemetry.Span) (*IngestResult, error) {
	key := objectKeyPrefix + s.uuidGen.Generate() + ".pdf"
	uri, err := s.objects.PutObject(ctx, key, pdfContentType, in.Content)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeTransientBackend, domain.ErrStorageOperation.Message, err)
	}

	doc, err := s.meta.CreateDocument(ctx, in.Filename, uri)
	if err != nil {
		if delErr := s.objects.DeleteObject(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned object", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	span.SetTag("document_id", doc.ID)
	log := s.logger.With(zap.String("document_id", doc.ID), zap.String("filename", in.Filename))

	text, err := s.extractor.ExtractText(ctx, in.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	chunks, err := Segment(text, s.chunkCfg.Size, s.chunkCfg.Overlap)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		if err := s.meta.MarkFailed(ctx, doc.ID, domain.ErrNoContent.Message); err != nil {
			return nil, fmt.Errorf("failed to mark document failed: %w", err)
		}
		log.Info("document has no extractable text")
		return nil, domain.ErrNoContent
	}

	if err := s.meta.SetExpectedChunks(ctx, doc.ID, len(chunks)); err != nil {
		return nil, fmt.Errorf("failed to record chunk count: %w", err)
	}
	for i, c := range chunks {
		if err := s.meta.SaveChunk(ctx, doc.ID, i, c); err != nil {
			return nil, fmt.Errorf("failed to save chunk %d: %w", i, err)
		}
	}
	telemetry.AddBreadcrumb(ctx, "ingestion", fmt.Sprintf("saved %d chunks", len(chunks)))

	indexed, err := s.indexer.Index(ctx, doc.ID, chunks)
	if err != nil {
		s.enqueueReindex(ctx, log, doc.ID, domain.ReindexReasonIndexFailed)
		return nil, err
	}

	if indexed != len(chunks) {
		metrics.ConsistencyWarnings.Inc()
		log.Warn("chunk count mismatch between metadata store and index",
			zap.String("code", domain.ErrCodeConsistency),
			zap.Int("saved", len(chunks)),
			zap.Int("indexed", indexed),
		)
		s.enqueueReindex(ctx, log, doc.ID, domain.ReindexReasonCountMismatch)
	}

	if err := s.meta.MarkReady(ctx, doc.ID, len(chunks)); err != nil {
		return nil, fmt.Errorf("failed to mark document ready: %w", err)
	}

	log.Info("document ingested", zap.Int("chunks", len(chunks)))
	return &IngestResult{DocumentID: doc.ID, ChunkCount: len(chunks)}, nil
}

// enqueueReindex is best-effort; the stuck-document sweep catches anything
// that slips through.
func (s *IngestionService) enqueueReindex(ctx context.Context, log *zap.Logger, documentID, reason string) {
	if s.queue == nil {
		log.Warn("no reindex queue configured, document needs manual reindex", zap.String("reason", reason))
		return
	}
	job, err := s.queue.Enqueue(ctx, documentID, reason)
	if err != nil {
		log.Error("failed to enqueue reindex job", zap.String("reason", reason), zap.Error(err))
		return
	}
	log.Info("reindex job enqueued", zap.String("job_id", job.ID), zap.String("reason", reason))
}
