package chi

import (
	"context"
	"net/http"

	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

type mockIngester struct {
	ingestFn func(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	last     ingestuc.Request
}

func (m *mockIngester) Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error) {
	m.last = req
	if m.ingestFn != nil {
		return m.ingestFn(ctx, req)
	}
	return ingestuc.Result{SourceName: req.Filename, SessionID: req.SessionID}, nil
}

type mockChatter struct {
	chatFn func(ctx context.Context, req chatuc.Request) (chatuc.Answer, error)
	last   chatuc.Request
}

func (m *mockChatter) Chat(ctx context.Context, req chatuc.Request) (chatuc.Answer, error) {
	m.last = req
	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return chatuc.Answer{Answer: "ok", SessionID: req.SessionID}, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return []float32{1, 2, 3}, nil
}

type mockCounter struct {
	countFn func(ctx context.Context) (int, error)
}

func (m *mockCounter) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testDeps struct {
	ingester *mockIngester
	chatter  *mockChatter
	embedder *mockEmbedder
	counter  *mockCounter
	health   *mockHealth
}

func newTestServer(opts ...ServerOption) (*Server, *testDeps) {
	d := &testDeps{
		ingester: &mockIngester{},
		chatter:  &mockChatter{},
		embedder: &mockEmbedder{},
		counter:  &mockCounter{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	s := NewServer(d.ingester, d.chatter, d.embedder, d.counter, d.health, nil, opts...)
	return s, d
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
