package admin

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/cloo-solutions/ragdoc/internal/config"
)

func TestNewReindexQueue(t *testing.T) {
	pool := &pgxpool.Pool{}

	t.Run("postgres metadata gets a queue", func(t *testing.T) {
		cfg := &config.Config{
			MetadataBackend: config.MetadataPostgres,
			IndexBackend:    config.IndexPGVector,
			DatabaseURL:     "postgres://x",
			ClaimTimeout:    time.Minute,
		}
		assert.NotNil(t, newReindexQueue(cfg, pool))
	})

	t.Run("mongo metadata with pgvector index has none", func(t *testing.T) {
		cfg := &config.Config{
			MetadataBackend: config.MetadataMongo,
			IndexBackend:    config.IndexPGVector,
			DatabaseURL:     "postgres://x",
		}
		assert.Nil(t, newReindexQueue(cfg, pool))
	})

	t.Run("no pool has none", func(t *testing.T) {
		cfg := &config.Config{MetadataBackend: config.MetadataPostgres, DatabaseURL: "postgres://x"}
		assert.Nil(t, newReindexQueue(cfg, nil))
	})
}
