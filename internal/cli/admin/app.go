package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cloo-solutions/ragdoc/internal/config"
	"github.com/cloo-solutions/ragdoc/internal/database"
	"github.com/cloo-solutions/ragdoc/internal/embedding"
	"github.com/cloo-solutions/ragdoc/internal/extract"
	"github.com/cloo-solutions/ragdoc/internal/repository"
	"github.com/cloo-solutions/ragdoc/internal/service"
	"github.com/cloo-solutions/ragdoc/internal/storage"
	"github.com/cloo-solutions/ragdoc/internal/vectorindex"
)

// app holds the wired backends and services shared by serve and reindex.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	pool       *pgxpool.Pool
	meta       service.MetadataStore
	jobRepo    *repository.ReindexJobRepository
	gateway    *service.Gateway
	ingestion  *service.IngestionService
	reindexSvc *service.ReindexService

	closers []func()
}

type appOptions struct {
	migrate       bool
	migrationsDir string
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	if cfg.HasPostgres() {
		var err error
		a.pool, err = database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, a.pool.Close)
		logger.Info("connected to database")

		if opts.migrate {
			if err := migrateUp(cfg.DatabaseURL, opts.migrationsDir, logger); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	}
	a.jobRepo = newReindexQueue(cfg, a.pool)

	if err := a.buildMetadataStore(ctx); err != nil {
		return nil, err
	}

	index, err := a.buildIndex(ctx)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.New(embedding.Config{
		Provider:   cfg.EmbeddingProvider,
		BaseURL:    cfg.EmbeddingBaseURL,
		Model:      cfg.EmbeddingModel,
		APIKey:     cfg.OpenAIAPIKey,
		Dimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a.gateway = service.NewGateway(embedder, index)

	objects, err := a.buildObjectStore(ctx)
	if err != nil {
		return nil, err
	}

	var queue service.ReindexQueue
	ingestOpts := []service.IngestionOption{
		service.WithChunkConfig(service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}),
	}
	if a.jobRepo != nil {
		queue = a.jobRepo
		ingestOpts = append(ingestOpts, service.WithReindexQueue(a.jobRepo))
	} else {
		logger.Warn("reindex queue disabled: it requires the postgres metadata backend",
			zap.String("metadata_backend", cfg.MetadataBackend))
	}

	a.ingestion = service.NewIngestionService(objects, a.meta, extract.NewPDFToText(), a.gateway, logger, ingestOpts...)
	a.reindexSvc = service.NewReindexService(a.meta, a.gateway, queue, logger)

	ready = true
	return a, nil
}

// newReindexQueue returns nil unless documents live in the same postgres
// database as the job table.
func newReindexQueue(cfg *config.Config, pool *pgxpool.Pool) *repository.ReindexJobRepository {
	if !cfg.HasReindexQueue() || pool == nil {
		return nil
	}
	return repository.NewReindexJobRepository(pool, repository.WithClaimTimeout(cfg.ClaimTimeout))
}

func (a *app) buildMetadataStore(ctx context.Context) error {
	switch a.cfg.MetadataBackend {
	case config.MetadataMongo:
		client, err := repository.ConnectMongo(ctx, a.cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })

		store := repository.NewMongoMetadataStore(client.Database(a.cfg.MongoDB))
		if err := store.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		a.meta = store
	default:
		a.meta = repository.NewPostgresMetadataStore(a.pool)
	}
	a.logger.Info("metadata store ready", zap.String("backend", a.cfg.MetadataBackend))
	return nil
}

func (a *app) buildIndex(ctx context.Context) (vectorindex.Index, error) {
	a.logger.Info("vector index selected", zap.String("backend", a.cfg.IndexBackend))

	switch a.cfg.IndexBackend {
	case config.IndexChromem:
		idx, err := vectorindex.NewChromem(a.cfg.ChromemPath, "", a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem index: %w", err)
		}
		return idx, nil
	case config.IndexQdrant:
		idx, err := vectorindex.NewQdrant(vectorindex.QdrantConfig{
			Host:       a.cfg.QdrantHost,
			Port:       a.cfg.QdrantPort,
			Collection: a.cfg.QdrantCollection,
			VectorSize: a.cfg.EmbeddingDimensions,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = idx.Close() })
		if err := idx.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
		}
		return idx, nil
	default:
		return vectorindex.NewPGVector(a.pool), nil
	}
}

func (a *app) buildObjectStore(ctx context.Context) (service.ObjectStore, error) {
	if !a.cfg.HasS3() {
		store, err := storage.NewFileStore(a.cfg.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create file store: %w", err)
		}
		a.logger.Info("S3 not configured, storing uploads on disk", zap.String("dir", a.cfg.StorageDir))
		return store, nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        a.cfg.S3Endpoint,
		Region:          a.cfg.S3Region,
		AccessKeyID:     a.cfg.S3AccessKey,
		SecretAccessKey: a.cfg.S3SecretKey,
		Bucket:          a.cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	a.logger.Info("S3 bucket ready", zap.String("bucket", a.cfg.S3Bucket))
	return client, nil
}

// Close releases backends in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
