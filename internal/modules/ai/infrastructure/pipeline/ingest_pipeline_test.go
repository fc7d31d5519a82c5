package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ChatBooks/internal/modules/ai/infrastructure/chunking"
	"ChatBooks/internal/modules/ai/infrastructure/embedding"
	"ChatBooks/internal/modules/ai/infrastructure/vectordb"

	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngest(t *testing.T, l DocumentLoader) (*IngestPipeline, *vectordb.LocalStore) {
	t.Helper()
	store, err := vectordb.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	em := embedding.NewHashEmbedder(64)
	idx, err := vectordb.NewEinoVectorStore(store, em, 10)
	require.NoError(t, err)

	p, err := NewIngestPipeline(l, chunking.NewChunker(100, 10), em, idx)
	require.NoError(t, err)
	return p, store
}

func TestIngestPipelineStoresChunks(t *testing.T) {
	l := &fakeLoader{docs: []*schema.Document{
		{Content: strings.Repeat("whale ", 60), MetaData: map[string]any{"file_name": "moby.pdf", "page": 0, "bad": []int{1}}},
		{Content: "short second page", MetaData: map[string]any{"file_name": "moby.pdf", "page": 1}},
	}}
	p, store := newTestIngest(t, l)
	ctx := context.Background()

	res, err := p.Ingest(ctx, IngestRequest{Path: "books/moby.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "moby.pdf", res.FileName)
	assert.Equal(t, "pdf", res.Format)
	assert.Equal(t, 2, res.Documents)
	assert.Greater(t, res.Chunks, 2)
	assert.Len(t, res.StoredIDs, res.Chunks)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, res.Chunks, n)

	hits, err := store.Search(ctx, make32(64), 100, 0)
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotContains(t, h.MetadataJSON, "bad")
		assert.Contains(t, h.MetadataJSON, `"file_name":"moby.pdf"`)
	}
}

func TestIngestPipelineIsIdempotent(t *testing.T) {
	l := &fakeLoader{docs: []*schema.Document{{Content: strings.Repeat("sea ", 80)}}}
	p, store := newTestIngest(t, l)
	ctx := context.Background()

	first, err := p.Ingest(ctx, IngestRequest{Path: "a.epub"})
	require.NoError(t, err)
	second, err := p.Ingest(ctx, IngestRequest{Path: "a.epub"})
	require.NoError(t, err)
	assert.Equal(t, first.StoredIDs, second.StoredIDs)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, first.Chunks, n)
}

func TestIngestPipelineLoaderError(t *testing.T) {
	p, store := newTestIngest(t, &fakeLoader{err: errors.New("corrupt file")})
	_, err := p.Ingest(context.Background(), IngestRequest{Path: "broken.mobi"})
	assert.ErrorContains(t, err, "corrupt file")

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestPipelineEmptyDocument(t *testing.T) {
	p, _ := newTestIngest(t, &fakeLoader{docs: []*schema.Document{{Content: "   "}}})
	res, err := p.Ingest(context.Background(), IngestRequest{Path: "blank.pdf"})
	require.NoError(t, err)
	assert.Zero(t, res.Chunks)
	assert.Empty(t, res.StoredIDs)
}

// make32 任意非零查询向量，只用于取回全部记录
func make32(dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = 1
	}
	return v
}

// cappedEmbedder 模拟远程接口的单次条数上限
type cappedEmbedder struct {
	inner *embedding.HashEmbedder
	limit int
	calls int
}

func (c *cappedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoEmbedding.Option) ([][]float64, error) {
	c.calls++
	if len(texts) > c.limit {
		return nil, fmt.Errorf("too many inputs: %d > %d", len(texts), c.limit)
	}
	return c.inner.EmbedStrings(ctx, texts, opts...)
}

func TestIngestPipelineBatchesLargeBooks(t *testing.T) {
	store, err := vectordb.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	capped := &cappedEmbedder{inner: embedding.NewHashEmbedder(64), limit: 8}
	em := embedding.NewBatchEmbedder(capped, 8)
	idx, err := vectordb.NewEinoVectorStore(store, em, 10)
	require.NoError(t, err)

	pages := make([]*schema.Document, 40)
	for i := range pages {
		pages[i] = &schema.Document{Content: fmt.Sprintf("page %d %s", i, strings.Repeat("whale ", 30))}
	}
	p, err := NewIngestPipeline(&fakeLoader{docs: pages}, chunking.NewChunker(100, 10), em, idx)
	require.NoError(t, err)

	res, err := p.Ingest(context.Background(), IngestRequest{Path: "big.pdf"})
	require.NoError(t, err)
	assert.Greater(t, res.Chunks, 8)
	assert.Len(t, res.StoredIDs, res.Chunks)
	assert.GreaterOrEqual(t, capped.calls, res.Chunks/8)

	_, err = capped.EmbedStrings(context.Background(), make([]string, 9))
	assert.Error(t, err)
}
