package embedding

import (
	"context"
	"fmt"
	"math"
	"testing"

	"ChatBooks/internal/config"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(128)
	vecs, err := e.EmbedStrings(context.Background(), []string{"Call me Ishmael", "Call me Ishmael"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 128)
	assert.Equal(t, vecs[0], vecs[1])
	assert.InDelta(t, 1.0, cosine(vecs[0], vecs[0]), 1e-9)
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e := NewHashEmbedder(384)
	vecs, err := e.EmbedStrings(context.Background(), []string{
		"the white whale swims in the sea",
		"a white whale in the open sea",
		"compound interest and bond yields",
	})
	require.NoError(t, err)
	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := NewHashEmbedder(0)
	vecs, err := e.EmbedStrings(context.Background(), []string{""})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 384)
	for _, v := range vecs[0] {
		assert.Zero(t, v)
	}
}

func TestNewEmbedderFromConfig(t *testing.T) {
	conf := config.Default()
	em, meta, err := NewEmbedderFromConfig(context.Background(), conf)
	require.NoError(t, err)
	assert.NotNil(t, em)
	assert.Equal(t, "hash", meta.Provider)
	assert.Equal(t, 384, meta.Dim)

	conf.AIConfig.Embedding.Provider = "nope"
	_, _, err = NewEmbedderFromConfig(context.Background(), conf)
	assert.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_EMBED_MODEL", "")
	conf.AIConfig.Embedding.Provider = "openai"
	_, _, err = NewEmbedderFromConfig(context.Background(), conf)
	assert.Error(t, err)
}

type fixedEmbedder struct{ dim int }

func (f fixedEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = make([]float64, f.dim)
	}
	return out, nil
}

func TestDimGuard(t *testing.T) {
	ctx := context.Background()
	ok := &dimGuard{inner: fixedEmbedder{dim: 8}, dim: 8}
	vecs, err := ok.EmbedStrings(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	bad := &dimGuard{inner: fixedEmbedder{dim: 4}, dim: 8}
	_, err = bad.EmbedStrings(ctx, []string{"a"})
	assert.Error(t, err)
}

func TestRemoteEmbedderNeedsDimensions(t *testing.T) {
	conf := config.Default()
	conf.AIConfig.Embedding.Provider = "dashscope"
	conf.AIConfig.Embedding.APIKey = "k"
	conf.AIConfig.Embedding.Model = "text-embedding-v3"
	conf.AIConfig.Embedding.Dimensions = 0
	_, _, err := NewEmbedderFromConfig(context.Background(), conf)
	assert.Error(t, err)
}

type limitedEmbedder struct {
	limit int
	calls [][]string
}

func (l *limitedEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if len(texts) > l.limit {
		return nil, fmt.Errorf("batch of %d exceeds %d", len(texts), l.limit)
	}
	l.calls = append(l.calls, texts)
	out := make([][]float64, len(texts))
	for i, s := range texts {
		out[i] = []float64{float64(len(s))}
	}
	return out, nil
}

func TestBatchEmbedder(t *testing.T) {
	inner := &limitedEmbedder{limit: 3}
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff", "g"}

	vecs, err := NewBatchEmbedder(inner, 3).EmbedStrings(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, s := range texts {
		assert.Equal(t, float64(len(s)), vecs[i][0])
	}
	assert.Len(t, inner.calls, 3)

	_, err = NewBatchEmbedder(&limitedEmbedder{limit: 3}, 10).EmbedStrings(context.Background(), texts)
	assert.Error(t, err)

	vecs, err = NewBatchEmbedder(inner, 0).EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestOllamaEmbedderFromConfig(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("OLLAMA_EMBED_MODEL", "")
	conf := config.Default()
	conf.AIConfig.Embedding.Provider = "ollama"
	conf.AIConfig.Embedding.Dimensions = 768

	em, meta, err := NewEmbedderFromConfig(context.Background(), conf)
	require.NoError(t, err)
	assert.IsType(t, &BatchEmbedder{}, em)
	assert.Equal(t, "ollama", meta.Provider)
	assert.Equal(t, "nomic-embed-text", meta.Model)
	assert.Equal(t, 768, meta.Dim)

	conf.AIConfig.Embedding.Dimensions = 0
	_, _, err = NewEmbedderFromConfig(context.Background(), conf)
	assert.Error(t, err)
}
