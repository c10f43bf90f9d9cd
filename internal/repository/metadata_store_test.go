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

func TestPostgresMetadataStore_DocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)

	doc, err := store.CreateDocument(ctx, "report.pdf", "s3://bucket/documents/x.pdf")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusProcessing, doc.Status)
	assert.Equal(t, 0, doc.ChunkCount)

	require.NoError(t, store.SaveChunk(ctx, doc.ID, 1, "second"))
	require.NoError(t, store.SaveChunk(ctx, doc.ID, 0, "first"))

	chunks, err := store.ListChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "first", chunks[0].Text)
	assert.Equal(t, 1, chunks[1].Index)

	require.NoError(t, store.MarkReady(ctx, doc.ID, 2))
	ready, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusReady, ready.Status)
	assert.Equal(t, 2, ready.ChunkCount)

	require.NoError(t, store.MarkReady(ctx, doc.ID, 2))
	again, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, ready.UpdatedAt.Equal(again.UpdatedAt))
}

func TestPostgresMetadataStore_SaveChunk_Duplicate(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)
	doc, err := store.CreateDocument(ctx, "a.pdf", "file:///tmp/a.pdf")
	require.NoError(t, err)

	require.NoError(t, store.SaveChunk(ctx, doc.ID, 0, "one"))
	err = store.SaveChunk(ctx, doc.ID, 0, "again")
	assert.ErrorIs(t, err, domain.ErrChunkAlreadyExists)
}

func TestPostgresMetadataStore_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)

	_, err := store.GetDocument(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = store.GetDocument(ctx, "4f9c5f0e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	err = store.MarkReady(ctx, "4f9c5f0e-0000-4000-8000-000000000000", 1)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	err = store.SaveChunk(ctx, "4f9c5f0e-0000-4000-8000-000000000000", 0, "orphan")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	chunks, err := store.ListChunks(ctx, "4f9c5f0e-0000-4000-8000-000000000000")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPostgresMetadataStore_MarkFailed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)
	doc, err := store.CreateDocument(ctx, "blank.pdf", "file:///tmp/blank.pdf")
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, doc.ID, "no extractable text"))

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusFailed, got.Status)
	assert.Equal(t, "no extractable text", got.Error)
}

func TestPostgresMetadataStore_SetExpectedChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)
	doc, err := store.CreateDocument(ctx, "a.pdf", "file:///tmp/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.ExpectedChunks)

	require.NoError(t, store.SetExpectedChunks(ctx, doc.ID, 3))
	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ExpectedChunks)

	require.NoError(t, store.MarkFailed(ctx, doc.ID, "ingestion interrupted"))
	assert.ErrorIs(t, store.SetExpectedChunks(ctx, doc.ID, 4), domain.ErrDocumentFailed)
	assert.ErrorIs(t, store.SetExpectedChunks(ctx, "4f9c5f0e-0000-4000-8000-000000000000", 1), domain.ErrDocumentNotFound)
}

func TestPostgresMetadataStore_ListDocuments(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)
	var ids []string
	for i := 0; i < 5; i++ {
		doc, err := store.CreateDocument(ctx, "doc.pdf", "file:///tmp/doc.pdf")
		require.NoError(t, err)
		ids = append(ids, doc.ID)
		time.Sleep(2 * time.Millisecond)
	}

	first, err := store.ListDocuments(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, ids[4], first.Items[0].ID)
	assert.Equal(t, ids[3], first.Items[1].ID)

	second, err := store.ListDocuments(ctx, 2, first.Cursor)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, ids[2], second.Items[0].ID)

	third, err := store.ListDocuments(ctx, 2, second.Cursor)
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.False(t, third.HasMore)

	_, err = store.ListDocuments(ctx, 2, "!!!")
	assert.True(t, domain.IsCode(err, domain.ErrCodeValidation))
}

func TestPostgresMetadataStore_ListStuck(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPostgresMetadataStore(pool)
	stuck, err := store.CreateDocument(ctx, "stuck.pdf", "file:///tmp/stuck.pdf")
	require.NoError(t, err)
	done, err := store.CreateDocument(ctx, "done.pdf", "file:///tmp/done.pdf")
	require.NoError(t, err)
	require.NoError(t, store.MarkReady(ctx, done.ID, 1))

	docs, err := store.ListStuck(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, stuck.ID, docs[0].ID)

	docs, err = store.ListStuck(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
