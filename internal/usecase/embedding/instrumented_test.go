package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// mockEmbedder returns result/err, or the output of fn when set.
type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	fn     func(text string) (domain.EmbeddingResult, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(text)
	}
	return m.result, m.err
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type healthyEmbedder struct {
	mockEmbedder
	healthErr error
}

func (h *healthyEmbedder) HealthCheck(context.Context) error { return h.healthErr }

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 100,
		TotalTokens:  100,
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
	if result.TotalTokens != 100 {
		t.Fatalf("expected 100 total tokens, got %d", result.TotalTokens)
	}
}

func TestInstrumentedEmbedder_ErrorKeepsSentinel(t *testing.T) {
	inner := &mockEmbedder{err: fmt.Errorf("upstream: %w", domain.ErrBackendRequestFailed)}
	p := NewInstrumentedEmbedder(inner, "test-err", "test-model-e", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrBackendRequestFailed) {
		t.Fatalf("expected ErrBackendRequestFailed, got %v", err)
	}
}

func TestInstrumentedEmbedder_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inner := &mockEmbedder{fn: func(text string) (domain.EmbeddingResult, error) {
		if text == "slow" {
			time.Sleep(5 * time.Millisecond)
		}
		return domain.EmbeddingResult{Embedding: []float32{1, 2}}, nil
	}}
	p := NewInstrumentedEmbedder(inner, "ollama", "nomic", zap.New(core))
	p.slow = time.Millisecond

	ctx := logger.ContextWithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "r1")))
	if _, err := p.Embed(ctx, "slow"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("Slow embedding request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one slow warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r1" || fields["provider"] != "ollama" || fields["model"] != "nomic" {
		t.Errorf("unexpected fields %v", fields)
	}
	if _, ok := fields["input_len"]; !ok {
		t.Error("expected input_len on slow warning")
	}
}

func TestInstrumentedEmbedder_HealthCheck(t *testing.T) {
	inner := &healthyEmbedder{healthErr: errors.New("down")}
	p := NewInstrumentedEmbedder(inner, "test", "m", zap.NewNop())
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Error("expected health error from inner")
	}

	plain := NewInstrumentedEmbedder(&mockEmbedder{}, "test", "m", zap.NewNop())
	if err := plain.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected nil for embedder without health check, got %v", err)
	}
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	e := domain.NewInstructionEmbedder(inner, "search_query: ")

	if _, err := e.Embed(context.Background(), "what is rag"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 1 || !strings.HasPrefix(inner.calls[0], "search_query: ") {
		t.Errorf("expected instruction prefix, got %v", inner.calls)
	}

	if domain.NewInstructionEmbedder(inner, "") != domain.Embedder(inner) {
		t.Error("empty instruction should return the inner embedder")
	}
}
