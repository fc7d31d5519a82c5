package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"ChatBooks/internal/modules/ai/domain/assistant"
	"ChatBooks/internal/modules/ai/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()

	require.NoError(t, repo.Create(ctx, assistant.NewSession("s1", time.Now())))
	assert.Error(t, repo.Create(ctx, assistant.NewSession("s1", time.Now())))

	require.NoError(t, repo.AppendMessage(ctx, "s1", assistant.ChatMessage{Role: assistant.RoleUser, Content: "hi"}))
	require.NoError(t, repo.AppendMessage(ctx, "s1", assistant.ChatMessage{Role: assistant.RoleAssistant, Content: "hello"}))
	require.NoError(t, repo.AddNote(ctx, "s1", "p1", "first"))
	require.NoError(t, repo.AddNote(ctx, "s1", "p1", "second"))
	require.NoError(t, repo.AddNote(ctx, "s1", "p2", "other"))

	s, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, s.Messages, 2)
	assert.True(t, s.Messages[0].IsUser())
	assert.False(t, s.Messages[0].CreatedAt.IsZero())
	assert.Equal(t, []string{"first", "second"}, s.Notes["p1"])
	assert.Equal(t, []string{"other"}, s.Notes["p2"])

	require.NoError(t, repo.Reset(ctx, "s1"))
	s, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, s.Messages)
	assert.Empty(t, s.Notes)

	require.NoError(t, repo.Delete(ctx, "s1"))
	s, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestMemorySessionRepositoryUnknownSession(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()
	assert.ErrorIs(t, repo.AppendMessage(ctx, "nope", assistant.ChatMessage{}), repository.ErrSessionNotFound)
	assert.ErrorIs(t, repo.AddNote(ctx, "nope", "p", "n"), repository.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Reset(ctx, "nope"), repository.ErrSessionNotFound)
}

func TestMemorySessionRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()
	require.NoError(t, repo.Create(ctx, assistant.NewSession("s", time.Now())))
	require.NoError(t, repo.AddNote(ctx, "s", "p", "n"))

	s, err := repo.Get(ctx, "s")
	require.NoError(t, err)
	s.Notes["p"][0] = "mutated"
	s.Notes["q"] = []string{"x"}

	again, err := repo.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, again.Notes["p"])
	assert.NotContains(t, again.Notes, "q")
}

func TestMemorySessionRepositoryConcurrentNotes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()
	require.NoError(t, repo.Create(ctx, assistant.NewSession("s", time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.AddNote(ctx, "s", "p", "n")
		}()
	}
	wg.Wait()

	s, err := repo.Get(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, s.Notes["p"], 50)
}
