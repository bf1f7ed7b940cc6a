package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

func TestChunk_SkipsEmptyPages(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(0))
	chunks := c.Chunk([]document.Page{
		{Number: 1, Text: ""},
		{Number: 2, Text: "aaaa bbbb cccc"},
	})

	require.Len(t, chunks, 2)
	assert.Equal(t, document.Chunk{PageNumber: 2, ChunkIndex: 0, Text: "aaaa bbbb"}, chunks[0])
	assert.Equal(t, document.Chunk{PageNumber: 2, ChunkIndex: 1, Text: "cccc"}, chunks[1])
}

func TestChunk_AllEmpty(t *testing.T) {
	c := New()
	assert.Empty(t, c.Chunk([]document.Page{{Number: 1}, {Number: 2}}))
}

func TestChunk_IndexRestartsPerPage(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(0))
	chunks := c.Chunk([]document.Page{
		{Number: 1, Text: "aaaa bbbb cccc"},
		{Number: 2, Text: "dddd"},
	})

	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[1].PageNumber)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, 2, chunks[2].PageNumber)
	assert.Equal(t, 0, chunks[2].ChunkIndex)
}

func TestChunk_DropsFragmentsEmptyAfterSanitize(t *testing.T) {
	c := New(WithChunkSize(5), WithOverlap(0))
	chunks := c.Chunk([]document.Page{{Number: 1, Text: "abcd \x00\x00\x00\x00\x00 efgh"}})

	for _, ch := range chunks {
		assert.NotEmpty(t, ch.Text)
		assert.NotContains(t, ch.Text, "\x00")
	}
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
	}
}

func TestChunk_IdentitiesUnique(t *testing.T) {
	c := New(WithChunkSize(20), WithOverlap(5))
	pages := []document.Page{
		{Number: 1, Text: "one two three four five six seven eight nine ten"},
		{Number: 2, Text: "eleven twelve thirteen fourteen fifteen"},
	}

	seen := map[string]bool{}
	for _, ch := range c.Chunk(pages) {
		id := ch.ID("hash")
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.NotEmpty(t, seen)
}
