package vectordb

import (
	"testing"

	"ChatBooks/internal/modules/ai/domain/repository"

	"github.com/stretchr/testify/assert"
)

func TestRelevance(t *testing.T) {
	assert.InDelta(t, 1.0, relevance(1), 1e-6)
	assert.InDelta(t, 0.5, relevance(0), 1e-6)
	assert.InDelta(t, 0.0, relevance(-1), 1e-6)
	assert.InDelta(t, 1.0, relevance(1.2), 1e-6)
}

func TestFinalizeHits(t *testing.T) {
	hits := []repository.VectorSearchHit{
		{ID: "b", Score: 0.8},
		{ID: "a", Score: 0.8},
		{ID: "c", Score: 0.2},
		{ID: "d", Score: 0.9},
	}
	out := finalizeHits(hits, 2, 0.5)
	assert.Equal(t, []string{"d", "a"}, []string{out[0].ID, out[1].ID})

	assert.Empty(t, finalizeHits([]repository.VectorSearchHit{{ID: "x", Score: 0.1}}, 10, 0.5))
}

func TestCheckUpsertItem(t *testing.T) {
	ok := repository.VectorUpsertItem{ID: "1", Vector: []float32{1, 0}}
	assert.NoError(t, checkUpsertItem(ok, 2))
	assert.NoError(t, checkUpsertItem(ok, 0))
	assert.Error(t, checkUpsertItem(ok, 3))
	assert.Error(t, checkUpsertItem(repository.VectorUpsertItem{Vector: []float32{1}}, 0))
	assert.Error(t, checkUpsertItem(repository.VectorUpsertItem{ID: "2"}, 0))

	assert.NoError(t, checkQueryVector([]float32{1, 2}, 2))
	assert.Error(t, checkQueryVector([]float32{1}, 2))

	assert.Equal(t, "{}", metadataOrEmpty(""))
	assert.Equal(t, `{"a":1}`, metadataOrEmpty(`{"a":1}`))
}
