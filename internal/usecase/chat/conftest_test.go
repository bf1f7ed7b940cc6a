package chat

import (
	"context"

	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
)

type mockRetriever struct {
	retrieveFn func(ctx context.Context, question string, k int, source string) (retrieval.Result, error)
	gotK       int
	gotSource  string
}

func (m *mockRetriever) Retrieve(ctx context.Context, question string, k int, source string) (retrieval.Result, error) {
	m.gotK = k
	m.gotSource = source
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, question, k, source)
	}
	return retrieval.Result{}, nil
}

type mockModel struct {
	completeFn func(ctx context.Context, messages []domchat.Message) (domchat.Completion, error)
	calls      int
	messages   []domchat.Message
}

func (m *mockModel) Complete(ctx context.Context, messages []domchat.Message) (domchat.Completion, error) {
	m.calls++
	m.messages = messages
	if m.completeFn != nil {
		return m.completeFn(ctx, messages)
	}
	return domchat.Completion{Content: "answer [1]", Model: "llama3.1:8b"}, nil
}

type mockSessions struct {
	sources map[string]string
	err     error
}

func (m *mockSessions) LastSource(_ context.Context, id string) (string, error) {
	return m.sources[id], m.err
}
