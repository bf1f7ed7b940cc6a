package chunk

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn    func(ctx context.Context, schema db.Schema) error
	indexExistsFn    func(ctx context.Context, name string) (bool, error)
	searchKNNFn      func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn    func(ctx context.Context, q *db.CountQuery) (int, error)
	addMembersFn     func(ctx context.Context, setKey string, items []db.HashSetItem) error
	replaceMembersFn func(ctx context.Context, setKey string, items []db.HashSetItem) (int, error)

	createIndexCalls int
}

func (m *mockStore) CreateIndex(ctx context.Context, schema db.Schema) error {
	m.createIndexCalls++
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, schema)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, q *db.CountQuery) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, q)
	}
	return 0, nil
}

func (m *mockStore) AddMembers(ctx context.Context, setKey string, items []db.HashSetItem) error {
	if m.addMembersFn != nil {
		return m.addMembersFn(ctx, setKey, items)
	}
	return nil
}

func (m *mockStore) ReplaceMembers(ctx context.Context, setKey string, items []db.HashSetItem) (int, error) {
	if m.replaceMembersFn != nil {
		return m.replaceMembersFn(ctx, setKey, items)
	}
	return 0, nil
}

func testEntry(source string, page, idx int, vec []float32) document.Entry {
	doc := document.Document{SourceName: source, ContentHash: "h-" + source}
	return document.NewEntry(doc, document.Chunk{PageNumber: page, ChunkIndex: idx, Text: "text"}, vec)
}

func ptr[T any](v T) *T { return &v }
