//go:build integration

package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/ragdoc/internal/domain"
	"github.com/cloo-solutions/ragdoc/internal/testutil"
)

func TestQdrant(t *testing.T) {
	ctx := context.Background()
	qc := testutil.NewQdrantContainer(ctx, t)
	defer qc.Terminate(ctx)

	idx, err := NewQdrant(QdrantConfig{Host: qc.Host, Port: qc.GRPCPort, Collection: "test_chunks", VectorSize: 3}, nil)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.EnsureCollection(ctx))
	// A second call finds the existing collection.
	require.NoError(t, idx.EnsureCollection(ctx))

	err = idx.Upsert(ctx, []domain.EmbeddingRecord{record("doc", 0, "too wide", 1, 0, 0, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	matches, err := idx.Query(ctx, []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, idx.Upsert(ctx, []domain.EmbeddingRecord{
		record("doc", 0, "x axis", 1, 0, 0),
		record("doc", 1, "y axis", 0, 1, 0),
		record("other", 0, "z axis", 0, 0, 1),
	}))

	matches, err = idx.Query(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "x axis", matches[0].Text)
	assert.Equal(t, "doc_0", matches[0].Key)
	assert.Equal(t, "doc", matches[0].DocumentID)
	assert.Equal(t, 0, matches[0].Index)

	n, err := idx.CountDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, idx.DeleteDocument(ctx, "doc"))

	n, err = idx.CountDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Zero(t, n)

	matches, err = idx.Query(ctx, []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "z axis", matches[0].Text)
}
