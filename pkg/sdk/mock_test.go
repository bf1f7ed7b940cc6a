package ragchat

import (
	"context"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

type mockIngestUC struct {
	fn func(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
}

func (m *mockIngestUC) Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error) {
	return m.fn(ctx, req)
}

type mockChatUC struct {
	fn func(ctx context.Context, req chatuc.Request) (chatuc.Answer, error)
}

func (m *mockChatUC) Chat(ctx context.Context, req chatuc.Request) (chatuc.Answer, error) {
	return m.fn(ctx, req)
}

type mockRetrieveUC struct {
	fn func(ctx context.Context, q string, k int, source string) (retrieval.Result, error)
}

func (m *mockRetrieveUC) Retrieve(ctx context.Context, q string, k int, source string) (retrieval.Result, error) {
	return m.fn(ctx, q, k, source)
}

type mockCounter struct {
	n   int
	err error
}

func (m *mockCounter) Count(context.Context) (int, error) { return m.n, m.err }

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockChatModel struct {
	fn func(ctx context.Context, messages []Message) (string, error)
}

func (m *mockChatModel) Complete(ctx context.Context, messages []Message) (string, error) {
	return m.fn(ctx, messages)
}

// keywordEmbedder maps text to a fixed-size bag of keyword hits so that
// passages sharing words with a query land close to it.
type keywordEmbedder struct {
	keywords []string
}

func (e keywordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.keywords)+1)
	vec[len(e.keywords)] = 0.01
	for i, k := range e.keywords {
		vec[i] = float32(strings.Count(lower, k))
	}
	return EmbeddingResult{Embedding: vec}, nil
}
