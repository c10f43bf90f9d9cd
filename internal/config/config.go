package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloo-solutions/ragdoc/internal/domain"
)

// Supported backend names.
const (
	MetadataPostgres = "postgres"
	MetadataMongo    = "mongo"

	IndexPGVector = "pgvector"
	IndexChromem  = "chromem"
	IndexQdrant   = "qdrant"

	EmbeddingOpenAI = "openai"
	EmbeddingTEI    = "tei"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	// API key required on /api routes when set
	APIKey         string `envconfig:"API_KEY"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`

	MetadataBackend string `envconfig:"METADATA_BACKEND" default:"postgres"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DBMaxConns      int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	MongoURI        string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDB         string `envconfig:"MONGO_DB" default:"ragdoc"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"ragdoc-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	StorageDir  string `envconfig:"STORAGE_DIR" default:"./data/documents"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingBaseURL    string `envconfig:"EMBEDDING_BASE_URL" default:"http://localhost:8081/v1"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`

	IndexBackend     string `envconfig:"INDEX_BACKEND" default:"pgvector"`
	ChromemPath      string `envconfig:"CHROMEM_PATH"`
	QdrantHost       string `envconfig:"QDRANT_HOST" default:"localhost"`
	QdrantPort       int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"ragdoc_chunks"`

	LLMProvider  string        `envconfig:"LLM_PROVIDER" default:"ollama"`
	LLMModel     string        `envconfig:"LLM_MODEL"`
	LLMAPIKey    string        `envconfig:"LLM_API_KEY"`
	LLMBaseURL   string        `envconfig:"LLM_BASE_URL"`
	LLMTimeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"120s"`
	LLMRateLimit float64       `envconfig:"LLM_RATE_LIMIT" default:"0"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"50"`
	TopK         int `envconfig:"TOP_K" default:"4"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"10s"`
	StuckAfter         time.Duration `envconfig:"STUCK_AFTER" default:"15m"`
	ClaimTimeout       time.Duration `envconfig:"REINDEX_CLAIM_TIMEOUT" default:"10m"`
	IndexAuditInterval time.Duration `envconfig:"INDEX_AUDIT_INTERVAL" default:"1h"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RAGDOC", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects combinations that cannot work, before anything is dialed.
func (c *Config) Validate() error {
	if c.ChunkOverlap <= 0 || c.ChunkSize <= c.ChunkOverlap {
		return domain.ConfigurationError(fmt.Sprintf("invalid chunking: size %d must exceed overlap %d > 0", c.ChunkSize, c.ChunkOverlap))
	}
	if c.TopK < 1 {
		return domain.ConfigurationError("TOP_K must be at least 1")
	}

	switch c.MetadataBackend {
	case MetadataPostgres:
		if c.DatabaseURL == "" {
			return domain.ConfigurationError("DATABASE_URL is required for the postgres metadata backend")
		}
	case MetadataMongo:
		if c.MongoURI == "" {
			return domain.ConfigurationError("MONGO_URI is required for the mongo metadata backend")
		}
	default:
		return domain.ConfigurationError(fmt.Sprintf("unknown metadata backend %q", c.MetadataBackend))
	}

	switch c.IndexBackend {
	case IndexPGVector:
		if c.DatabaseURL == "" {
			return domain.ConfigurationError("DATABASE_URL is required for the pgvector index backend")
		}
	case IndexChromem, IndexQdrant:
	default:
		return domain.ConfigurationError(fmt.Sprintf("unknown index backend %q", c.IndexBackend))
	}

	switch c.EmbeddingProvider {
	case EmbeddingOpenAI:
		if c.OpenAIAPIKey == "" {
			return domain.ConfigurationError("OPENAI_API_KEY is required for the openai embedding provider")
		}
	case EmbeddingTEI:
		if c.EmbeddingBaseURL == "" {
			return domain.ConfigurationError("EMBEDDING_BASE_URL is required for the tei embedding provider")
		}
	default:
		return domain.ConfigurationError(fmt.Sprintf("unknown embedding provider %q", c.EmbeddingProvider))
	}

	if c.EmbeddingDimensions <= 0 {
		return domain.ConfigurationError("EMBEDDING_DIMENSIONS must be positive")
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasPostgres() bool {
	return c.DatabaseURL != ""
}

// HasReindexQueue reports whether reindex jobs can be stored. The job table
// references documents, so it only exists next to postgres metadata.
func (c *Config) HasReindexQueue() bool {
	return c.MetadataBackend == MetadataPostgres && c.HasPostgres()
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
