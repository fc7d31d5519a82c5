package util

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableUUID(t *testing.T) {
	a := StableUUID("book.pdf", "3", "some text")
	b := StableUUID("book.pdf", "3", "some text")
	c := StableUUID("book.pdf", "4", "some text")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestStableUUIDSeparatesParts(t *testing.T) {
	assert.NotEqual(t, StableUUID("ab", "c"), StableUUID("a", "bc"))
}

func TestGenerateID(t *testing.T) {
	id := GenerateID("S")
	assert.Len(t, id, 17)
	assert.Equal(t, "S", id[:1])
	assert.NotEqual(t, id, GenerateID("S"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "héll...", Truncate("héllo world", 4))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
