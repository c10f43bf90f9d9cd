package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/ragdoc/internal/domain"
)

func record(docID string, index int, text string, vec ...float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{
		Key:        domain.CompositeKey(docID, index),
		DocumentID: docID,
		Index:      index,
		Text:       text,
		Vector:     vec,
	}
}

func newTestChromem(t *testing.T) *Chromem {
	t.Helper()
	idx, err := NewChromem("", "", nil)
	require.NoError(t, err)
	return idx
}

func TestChromem_QueryEmptyIndex(t *testing.T) {
	idx := newTestChromem(t)

	matches, err := idx.Query(context.Background(), []float32{1, 0, 0}, 4)

	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestChromem_QueryRanksByCosine(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromem(t)

	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{
		record("doc", 0, "x axis", 1, 0, 0),
		record("doc", 1, "y axis", 0, 1, 0),
		record("doc", 2, "mostly x", 0.9, 0.1, 0),
	}))

	matches, err := idx.Query(ctx, []float32{1, 0, 0}, 2)

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "x axis", matches[0].Text)
	assert.Equal(t, "doc_0", matches[0].Key)
	assert.Equal(t, "doc", matches[0].DocumentID)
	assert.Equal(t, 0, matches[0].Index)
	assert.Equal(t, "mostly x", matches[1].Text)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestChromem_QueryClampsTopK(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromem(t)
	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("doc", 0, "only", 1, 1)}))

	matches, err := idx.Query(ctx, []float32{1, 1}, 10)

	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestChromem_QueryRejectsNonPositiveTopK(t *testing.T) {
	_, err := newTestChromem(t).Query(context.Background(), []float32{1}, 0)
	assert.Error(t, err)
}

func TestChromem_UpsertReplacesByKey(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromem(t)

	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("doc", 0, "old", 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("doc", 0, "new", 1, 0)}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Text)
}

func TestChromem_CountAndDeleteDocument(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromem(t)

	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{
		record("a", 0, "a0", 1, 0),
		record("a", 1, "a1", 0.5, 0.5),
		record("a", 2, "a2", 0, 1),
		record("b", 0, "b0", 1, 1),
	}))

	n, err := idx.CountDocument(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, idx.DeleteDocument(ctx, "a"))

	n, err = idx.CountDocument(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = idx.CountDocument(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChromem_DeleteOnEmptyIndex(t *testing.T) {
	assert.NoError(t, newTestChromem(t).DeleteDocument(context.Background(), "missing"))
}

func TestChromem_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewChromem(dir, "chunks", nil)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record("doc", 0, "persisted", 1, 0)}))

	reopened, err := NewChromem(dir, "chunks", nil)
	require.NoError(t, err)

	matches, err := reopened.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "persisted", matches[0].Text)
}

func TestChromem_QueryReturnsIdentityFromKey(t *testing.T) {
	idx := newTestChromem(t)
	ctx := context.Background()

	docID := "7f1c2f0e-1111-4a4a-9c9c-000000000000"
	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{record(docID, 12, "twelfth", 1, 0)}))

	matches, err := idx.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, docID, matches[0].DocumentID)
	assert.Equal(t, 12, matches[0].Index)
}

func TestCheckDimensions(t *testing.T) {
	ok := []domain.EmbeddingRecord{record("a", 0, "x", 1, 0, 0), record("a", 1, "y", 0, 1, 0)}
	assert.NoError(t, checkDimensions(ok, 3))

	bad := append(ok, record("a", 2, "z", 0, 1))
	err := checkDimensions(bad, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.ErrorContains(t, err, "a_2")
}

func TestPointID_StableAndDistinct(t *testing.T) {
	assert.Equal(t, PointID("doc_0"), PointID("doc_0"))
	assert.NotEqual(t, PointID("doc_0"), PointID("doc_1"))
}
