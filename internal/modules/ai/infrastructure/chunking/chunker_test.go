package chunking

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkerNormalizes(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, 1024, c.ChunkSize)
	assert.Equal(t, 0, c.ChunkOverlap)

	c = NewChunker(100, 200)
	assert.Equal(t, 50, c.ChunkOverlap)
}

func TestChunkDocumentsShortText(t *testing.T) {
	c := NewChunker(1024, 100)
	docs := []*schema.Document{{Content: "A short page.", MetaData: map[string]any{"file_name": "a.pdf", "page": 3}}}

	out, err := c.ChunkDocuments(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "A short page.", out[0].Content)
	assert.Equal(t, "a.pdf", out[0].MetaData["file_name"])
	assert.Equal(t, 3, out[0].MetaData["page"])
	assert.Equal(t, 0, out[0].MetaData[MetaChunkIndex])
}

func TestChunkDocumentsRespectsSize(t *testing.T) {
	c := NewChunker(50, 10)
	para := strings.Repeat("word ", 40)
	docs := []*schema.Document{{Content: para + "\n\n" + para, MetaData: map[string]any{"file_name": "b.epub"}}}

	out, err := c.ChunkDocuments(context.Background(), docs)
	require.NoError(t, err)
	require.Greater(t, len(out), 2)
	for i, d := range out {
		assert.LessOrEqual(t, len([]rune(d.Content)), 50)
		assert.Equal(t, i, d.MetaData[MetaChunkIndex])
		assert.Equal(t, "b.epub", d.MetaData["file_name"])
	}
}

func TestChunkDocumentsSkipsBlank(t *testing.T) {
	c := NewChunker(1024, 100)
	out, err := c.ChunkDocuments(context.Background(), []*schema.Document{nil, {Content: " \n\t "}})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = c.ChunkDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestChunkDocumentsDoesNotMutateSource(t *testing.T) {
	c := NewChunker(1024, 100)
	src := &schema.Document{Content: "text", MetaData: map[string]any{"k": "v"}}
	_, err := c.ChunkDocuments(context.Background(), []*schema.Document{src})
	require.NoError(t, err)
	_, has := src.MetaData[MetaChunkIndex]
	assert.False(t, has)
}
