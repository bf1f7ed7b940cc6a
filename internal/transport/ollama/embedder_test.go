package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	os.Exit(m.Run())
}

func newTestEmbedder(url string) *Embedder {
	return NewEmbedder(&EmbedderConfig{BaseURL: url, Model: "test-embed", Logger: zap.NewNop()})
}

func TestEmbedder_PromptField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "test-embed" || body["prompt"] != "hello" {
			t.Errorf("unexpected request body: %v", body)
		}
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer server.Close()

	res, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(res.Embedding) != 3 || res.Embedding[2] != 0.3 {
		t.Errorf("unexpected embedding: %v", res.Embedding)
	}
}

func TestEmbedder_FallsBackToInputField(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["prompt"]; ok {
			_, _ = w.Write([]byte(`{"embedding":[]}`))
			return
		}
		if body["input"] != "hello" {
			t.Errorf("expected input field on retry, got %v", body)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,2],[3,4]]}`))
	}))
	defer server.Close()

	res, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if len(res.Embedding) != 2 || res.Embedding[0] != 1 {
		t.Errorf("expected first row of embeddings, got %v", res.Embedding)
	}
}

func TestEmbedder_BothAttemptsEmpty(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL).Embed(context.Background(), "some text")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	var uerr *domain.EmbeddingUnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected EmbeddingUnavailableError, got %T", err)
	}
	if uerr.Model != "test-embed" || uerr.InputLen != len("some text") {
		t.Errorf("unexpected error fields: %+v", uerr)
	}
	if calls.Load() != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls.Load())
	}
}

func TestEmbedder_Non2xxIsBackendError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer server.Close()

	_, err := newTestEmbedder(server.URL).Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrBackendRequestFailed) {
		t.Fatalf("expected ErrBackendRequestFailed, got %v", err)
	}
	var berr *domain.BackendError
	if !errors.As(err, &berr) || berr.Status != http.StatusInternalServerError {
		t.Errorf("expected BackendError with status 500, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("non-2xx must not trigger the fallback, got %d calls", calls.Load())
	}
}

func TestEmbedder_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(`{"embedding":[1]}`))
	}))
	defer server.Close()

	emb := NewEmbedder(&EmbedderConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrBackendRequestFailed) {
		t.Fatalf("expected ErrBackendRequestFailed on timeout, got %v", err)
	}
}

func TestParseVector_StrategyOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []float32
	}{
		{"embedding field", `{"embedding":[1,2]}`, []float32{1, 2}},
		{"data shape", `{"data":[{"embedding":[3]}]}`, []float32{3}},
		{"embeddings shape", `{"embeddings":[[4,5]]}`, []float32{4, 5}},
		{"embedding wins over data", `{"embedding":[1],"data":[{"embedding":[2]}]}`, []float32{1}},
		{"empty embedding falls through", `{"embedding":[],"data":[{"embedding":[2]}]}`, []float32{2}},
		{"not json", `oops`, nil},
		{"empty data", `{"data":[]}`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := parseVector([]byte(tc.body))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestEmbedder_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	if err := newTestEmbedder(server.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
}
