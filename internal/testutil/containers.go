// Package testutil starts throwaway backing services for integration and
// e2e tests. Every container is terminated through t.Cleanup; the explicit
// Terminate methods exist for tests that want to stop one early.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cloo-solutions/ragdoc/internal/database"
)

const (
	pgCredential     = "ragdoc"
	rustfsCredential = "rustfsadmin"
)

// startContainer runs req and returns the container with the host and the
// mapped port for exposed.
func startContainer(ctx context.Context, t *testing.T, name string, req testcontainers.ContainerRequest, exposed string) (testcontainers.Container, string, int) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s container: %v", name, err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get %s host: %v", name, err)
	}
	port, err := container.MappedPort(ctx, nat.Port(exposed))
	if err != nil {
		t.Fatalf("failed to get %s port: %v", name, err)
	}
	return container, host, port.Int()
}

// PostgresContainer is Postgres with the pgvector extension available.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	c, host, port := startContainer(ctx, t, "postgres", testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:0.8.1-pg18",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		// The server restarts once after init, hence two ready lines.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "5432")
	return &PostgresContainer{Container: c, Host: host, Port: port}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%[1]s:%[1]s@%s:%d/%[1]s?sslmode=disable", pgCredential, pc.Host, pc.Port)
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// RustFSContainer is an S3-compatible object store.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	c, host, port := startContainer(ctx, t, "rustfs", testcontainers.ContainerRequest{
		Image:        "rustfs/rustfs:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": rustfsCredential,
			"RUSTFS_SECRET_KEY": rustfsCredential,
		},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
	}, "9000")
	return &RustFSContainer{Container: c, Host: host, Port: port}
}

// Endpoint is the S3 endpoint URL; access and secret key are both "rustfsadmin".
func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", rc.Host, rc.Port)
}

func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// MongoContainer is a single-node MongoDB for metadata store tests.
type MongoContainer struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

func NewMongoContainer(ctx context.Context, t *testing.T) *MongoContainer {
	c, host, port := startContainer(ctx, t, "mongo", testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Waiting for connections"),
			wait.ForListeningPort("27017/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "27017")
	return &MongoContainer{Container: c, Host: host, Port: port}
}

func (mc *MongoContainer) URI() string {
	return fmt.Sprintf("mongodb://%s:%d", mc.Host, mc.Port)
}

func (mc *MongoContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(mc.Container)
}

// QdrantContainer exposes the gRPC port used by the Go client.
type QdrantContainer struct {
	Container testcontainers.Container
	Host      string
	GRPCPort  int
}

func NewQdrantContainer(ctx context.Context, t *testing.T) *QdrantContainer {
	c, host, port := startContainer(ctx, t, "qdrant", testcontainers.ContainerRequest{
		Image:        "qdrant/qdrant:v1.16.2",
		ExposedPorts: []string{"6333/tcp", "6334/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForHTTP("/readyz").WithPort("6333/tcp"),
			wait.ForListeningPort("6334/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}, "6334")
	return &QdrantContainer{Container: c, Host: host, GRPCPort: port}
}

func (qc *QdrantContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(qc.Container)
}

// NewTestPool connects to pc, retrying while the server finishes starting,
// and applies the migrations in migrationsDir with the same runner the
// daemon uses.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	var pool *pgxpool.Pool
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = database.NewPool(ctx, database.Config{URL: pc.ConnectionString()})
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := RunMigrations(ctx, pool, migrationsDir); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return pool
}

// RunMigrations applies every up migration in migrationsDir to the database
// behind pool.
func RunMigrations(_ context.Context, pool *pgxpool.Pool, migrationsDir string) error {
	_, err := database.MigrateUp(pool.Config().ConnString(), migrationsDir)
	return err
}

// TruncateAll empties every ragdoc table.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	tables := []string{"reindex_jobs", "chunk_embeddings", "chunks", "documents"}
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
