package boltindex

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

func openTest(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func entry(source string, page, idx int, vec ...float32) document.Entry {
	doc := document.New(source, []byte(source))
	return document.NewEntry(doc, document.Chunk{PageNumber: page, ChunkIndex: idx, Text: source}, vec)
}

func TestReplace_SwapsSourceEntries(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()

	_, err := s.Replace(ctx, "a.pdf", []document.Entry{entry("a.pdf", 1, 0, 1, 0), entry("a.pdf", 1, 1, 0, 1)})
	require.NoError(t, err)
	_, err = s.Replace(ctx, "b.pdf", []document.Entry{entry("b.pdf", 1, 0, 1, 1)})
	require.NoError(t, err)

	removed, err := s.Replace(ctx, "a.pdf", []document.Entry{entry("a.pdf", 2, 0, 1, 0)})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Query(ctx, []float32{1, 0}, 10, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Meta.PageNumber)
}

func TestReplace_RejectsForeignEntries(t *testing.T) {
	s, _ := openTest(t)
	_, err := s.Replace(context.Background(), "a.pdf", []document.Entry{entry("b.pdf", 1, 0, 1)})
	require.Error(t, err)

	n, _ := s.Count(context.Background())
	assert.Zero(t, n)
}

func TestDeleteSource(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []document.Entry{entry("a.pdf", 1, 0, 1), entry("b.pdf", 1, 0, 1)}))

	removed, err := s.DeleteSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, _ := s.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestQuery_OrdersByDistance(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []document.Entry{
		entry("far.pdf", 1, 0, 0, 1),
		entry("near.pdf", 1, 0, 1, 0),
		entry("mid.pdf", 1, 0, 1, 1),
		entry("other-dim.pdf", 1, 0, 1, 0, 0),
	}))

	got, err := s.Query(ctx, []float32{1, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near.pdf", got[0].Meta.SourceName)
	assert.Equal(t, "mid.pdf", got[1].Meta.SourceName)
	assert.InDelta(t, 0, *got[0].Distance, 1e-9)
	assert.InDelta(t, 1-1/math.Sqrt2, *got[1].Distance, 1e-6)
}

func TestQuery_EmptyStore(t *testing.T) {
	s, _ := openTest(t)
	got, err := s.Query(context.Background(), []float32{1}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_ReloadsPersistedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(), []document.Entry{entry("a.pdf", 1, 0, 1, 2)}))
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Query(context.Background(), []float32{1, 2}, 1, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.pdf", got[0].Text)
	require.NotNil(t, got[0].Distance)
	assert.InDelta(t, 0, *got[0].Distance, 1e-6)
}
