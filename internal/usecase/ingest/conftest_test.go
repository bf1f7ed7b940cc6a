package ingest

import (
	"context"
	"sync"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

type mockExtractor struct {
	pages []document.Page
	err   error
}

func (m *mockExtractor) Extract(_ context.Context, _ string, _ []byte) ([]document.Page, error) {
	out := make([]document.Page, len(m.pages))
	copy(out, m.pages)
	return out, m.err
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, texts []string) ([][]float32, error)
	batches [][]string
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// mockStore is an in-memory VectorStore keyed by entry ID.
type mockStore struct {
	mu         sync.Mutex
	entries    map[string]document.Entry
	replaceErr error
	countErr   error
	replaced   int
}

func newMockStore() *mockStore {
	return &mockStore{entries: make(map[string]document.Entry)}
}

func (m *mockStore) Replace(_ context.Context, source string, entries []document.Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return 0, m.replaceErr
	}
	m.replaced++
	removed := 0
	for id, e := range m.entries {
		if e.Metadata.SourceName == source {
			delete(m.entries, id)
			removed++
		}
	}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return removed, nil
}

func (m *mockStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), m.countErr
}

func (m *mockStore) sources() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, e := range m.entries {
		out[e.Metadata.SourceName]++
	}
	return out
}

type mockSessions struct {
	set map[string]string
}

func (m *mockSessions) SetLastSource(_ context.Context, id, source string) error {
	if m.set == nil {
		m.set = map[string]string{}
	}
	m.set[id] = source
	return nil
}
