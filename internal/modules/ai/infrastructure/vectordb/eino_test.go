package vectordb

import (
	"context"
	"testing"

	"ChatBooks/internal/modules/ai/infrastructure/embedding"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEinoVectorStoreStoreAndRetrieve(t *testing.T) {
	ctx := context.Background()
	local := setupLocalStore(t, t.TempDir())
	s, err := NewEinoVectorStore(local, embedding.NewHashEmbedder(64), 10)
	require.NoError(t, err)

	ids, err := s.Store(ctx, []*schema.Document{
		{ID: "1", Content: "the white whale", MetaData: map[string]any{"file_name": "moby.epub", "chunk_index": 0, "nested": map[string]any{"x": 1}}},
		{ID: "2", Content: "interest rates and bonds", MetaData: map[string]any{"file_name": "money.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)

	docs, err := s.Retrieve(ctx, "white whale", retriever.WithTopK(1), retriever.WithScoreThreshold(0))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "1", docs[0].ID)
	assert.Equal(t, "moby.epub", docs[0].MetaData["file_name"])
	assert.EqualValues(t, 0, docs[0].MetaData["chunk_index"])
	assert.NotContains(t, docs[0].MetaData, "nested")
	assert.Greater(t, docs[0].Score(), 0.5)

	docs, err = s.Retrieve(ctx, "white whale")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestEinoVectorStoreRejectsMissingID(t *testing.T) {
	local := setupLocalStore(t, t.TempDir())
	s, err := NewEinoVectorStore(local, embedding.NewHashEmbedder(8), 10)
	require.NoError(t, err)

	_, err = s.Store(context.Background(), []*schema.Document{{Content: "no id"}})
	assert.Error(t, err)
}

func TestFilterComplexMetadata(t *testing.T) {
	out := FilterComplexMetadata(map[string]any{
		"s": "x", "i": 3, "f": 1.5, "b": true,
		"list": []string{"a"}, "m": map[string]any{}, "nil": nil,
	})
	assert.Equal(t, map[string]any{"s": "x", "i": 3, "f": 1.5, "b": true}, out)
}
