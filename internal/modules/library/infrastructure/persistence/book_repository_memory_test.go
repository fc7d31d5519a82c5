package persistence

import (
	"context"
	"testing"
	"time"

	"ChatBooks/internal/modules/library/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBookRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookRepository()

	got, err := repo.GetByFileName(ctx, "moby.epub")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Upsert(ctx, &entity.Book{FileName: "moby.epub", Format: "epub", Chunks: 3, IngestedAt: time.Now()}))
	require.NoError(t, repo.Upsert(ctx, &entity.Book{FileName: "a.pdf", Format: "pdf", Chunks: 1}))
	require.NoError(t, repo.Upsert(ctx, &entity.Book{FileName: "moby.epub", Format: "epub", Chunks: 5}))

	got, err = repo.GetByFileName(ctx, "moby.epub")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Chunks)
	assert.Equal(t, int64(1), got.Id)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.pdf", list[0].FileName)

	assert.Error(t, repo.Upsert(ctx, &entity.Book{}))
}
