package vectordb

import (
	"context"
	"testing"

	"ChatBooks/internal/modules/ai/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocalStore(t *testing.T, dir string) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLocalStoreUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := setupLocalStore(t, t.TempDir())

	_, err := s.Upsert(ctx, []repository.VectorUpsertItem{
		{ID: "a", Vector: []float32{1, 0, 0}, Content: "alpha", MetadataJSON: `{"file_name":"a.pdf"}`},
		{ID: "b", Vector: []float32{0, 1, 0}, Content: "beta"},
		{ID: "c", Vector: []float32{-1, 0, 0}, Content: "gamma"},
	})
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	hits, err := s.Search(ctx, []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, `{"file_name":"a.pdf"}`, hits[0].MetadataJSON)
	assert.Equal(t, "b", hits[1].ID)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-6)
	assert.Equal(t, "c", hits[2].ID)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-6)
	assert.Equal(t, "{}", hits[1].MetadataJSON)
}

func TestLocalStoreTopKAndThreshold(t *testing.T) {
	ctx := context.Background()
	s := setupLocalStore(t, t.TempDir())
	_, err := s.Upsert(ctx, []repository.VectorUpsertItem{
		{ID: "a", Vector: []float32{1, 0}, Content: "a"},
		{ID: "b", Vector: []float32{1, 1}, Content: "b"},
		{ID: "c", Vector: []float32{0, 1}, Content: "c"},
	})
	require.NoError(t, err)

	hits, err := s.Search(ctx, []float32{1, 0}, 1, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)

	hits, err = s.Search(ctx, []float32{1, 0}, 10, 0.8)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, []string{"a", "b"}, []string{hits[0].ID, hits[1].ID})
}

func TestLocalStoreUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := setupLocalStore(t, t.TempDir())
	item := repository.VectorUpsertItem{ID: "x", Vector: []float32{1, 2}, Content: "v1"}
	_, err := s.Upsert(ctx, []repository.VectorUpsertItem{item})
	require.NoError(t, err)
	item.Content = "v2"
	_, err = s.Upsert(ctx, []repository.VectorUpsertItem{item})
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	hits, err := s.Search(ctx, []float32{1, 2}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].Content)
}

func TestLocalStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, []repository.VectorUpsertItem{{ID: "p", Vector: []float32{0.5, 0.5}, Content: "persisted"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2 := setupLocalStore(t, dir)
	hits, err := s2.Search(ctx, []float32{0.5, 0.5}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "persisted", hits[0].Content)
}

func TestLocalStoreEmptyAndInvalid(t *testing.T) {
	ctx := context.Background()
	s := setupLocalStore(t, t.TempDir())

	hits, err := s.Search(ctx, []float32{1}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = s.Search(ctx, nil, 10, 0)
	assert.Error(t, err)

	_, err = s.Upsert(ctx, []repository.VectorUpsertItem{{ID: "", Vector: []float32{1}}})
	assert.Error(t, err)

	_, err = NewLocalStore("")
	assert.Error(t, err)
}

func TestVectorCodec(t *testing.T) {
	v := []float32{1.5, -2.25, 0}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}
