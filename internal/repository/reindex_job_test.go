//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReindexJobRepository_Enqueue(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)
	jobRepo := NewReindexJobRepository(pool)

	doc, err := store.CreateDocument(ctx, "a.pdf", "file:///tmp/a.pdf")
	require.NoError(t, err)

	job, err := jobRepo.Enqueue(ctx, doc.ID, domain.ReindexReasonIndexFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.ReindexJobStatusPending, job.Status)
	assert.Equal(t, doc.ID, job.DocumentID)

	dup, err := jobRepo.Enqueue(ctx, doc.ID, domain.ReindexReasonManual)
	require.NoError(t, err)
	assert.Equal(t, job.ID, dup.ID)

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReindexReasonIndexFailed, retrieved.Reason)
	assert.Equal(t, int32(0), retrieved.Retries)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestReindexJobRepository_Enqueue_UnknownDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewReindexJobRepository(pool)
	_, err := jobRepo.Enqueue(ctx, "4f9c5f0e-0000-4000-8000-000000000000", domain.ReindexReasonManual)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestReindexJobRepository_ClaimAndComplete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)
	jobRepo := NewReindexJobRepository(pool)

	doc, err := store.CreateDocument(ctx, "a.pdf", "file:///tmp/a.pdf")
	require.NoError(t, err)
	job, err := jobRepo.Enqueue(ctx, doc.ID, domain.ReindexReasonCountMismatch)
	require.NoError(t, err)

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].ID)
	assert.Equal(t, domain.ReindexJobStatusProcessing, claimed[0].Status)
	assert.NotNil(t, claimed[0].ClaimedAt)

	again, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusCompleted, ""))

	done, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReindexJobStatusCompleted, done.Status)
	assert.Equal(t, int32(1), done.Retries)
	assert.NotNil(t, done.ProcessedAt)
}

func TestReindexJobRepository_ReclaimsAbandonedJobs(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)
	jobRepo := NewReindexJobRepository(pool, WithClaimTimeout(time.Minute))

	doc, err := store.CreateDocument(ctx, "a.pdf", "file:///tmp/a.pdf")
	require.NoError(t, err)
	job, err := jobRepo.Enqueue(ctx, doc.ID, domain.ReindexReasonStuck)
	require.NoError(t, err)

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// The claiming worker shut down before finishing the job.
	again, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = pool.Exec(ctx, `UPDATE reindex_jobs SET claimed_at = $2 WHERE id = $1`, job.ID, time.Now().UTC().Add(-2*time.Minute))
	require.NoError(t, err)

	reclaimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, job.ID, reclaimed[0].ID)
	assert.True(t, reclaimed[0].ClaimedAt.After(time.Now().UTC().Add(-time.Minute)))

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.ReindexJobStatusCompleted, ""))
	_, err = pool.Exec(ctx, `UPDATE reindex_jobs SET claimed_at = $2 WHERE id = $1`, job.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	done, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestReindexJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewReindexJobRepository(pool)
	missing := "4f9c5f0e-0000-4000-8000-000000000000"

	_, err := jobRepo.GetByID(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrReindexJobNotFound)
	assert.ErrorIs(t, jobRepo.UpdateStatus(ctx, missing, domain.ReindexJobStatusFailed, "x"), domain.ErrReindexJobNotFound)
	assert.ErrorIs(t, jobRepo.IncrementRetries(ctx, missing), domain.ErrReindexJobNotFound)
}
