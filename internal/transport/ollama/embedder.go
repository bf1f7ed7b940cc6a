package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// DefaultEmbedModel is used when no embedding model is configured.
const DefaultEmbedModel = "nomic-embed-text:latest"

// DefaultEmbedTimeout bounds a single embedding request.
const DefaultEmbedTimeout = 180 * time.Second

const embeddingsPath = "/api/embeddings"

// vectorParser extracts a vector from one response shape. ok is false when the shape
// is absent or holds no numbers.
type vectorParser struct {
	name  string
	parse func(body []byte) (vec []float32, ok bool)
}

// vectorParsers are tried in order; the first non-empty vector wins.
var vectorParsers = []vectorParser{
	{name: "embedding", parse: func(body []byte) ([]float32, bool) {
		var r struct {
			Embedding []float32 `json:"embedding"`
		}
		if json.Unmarshal(body, &r) != nil {
			return nil, false
		}
		return r.Embedding, len(r.Embedding) > 0
	}},
	{name: "data", parse: func(body []byte) ([]float32, bool) {
		var r struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if json.Unmarshal(body, &r) != nil || len(r.Data) == 0 {
			return nil, false
		}
		return r.Data[0].Embedding, len(r.Data[0].Embedding) > 0
	}},
	{name: "embeddings", parse: func(body []byte) ([]float32, bool) {
		var r struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if json.Unmarshal(body, &r) != nil || len(r.Embeddings) == 0 {
			return nil, false
		}
		return r.Embeddings[0], len(r.Embeddings[0]) > 0
	}},
}

// parseVector runs the parser strategies over a response body.
func parseVector(body []byte) []float32 {
	for _, p := range vectorParsers {
		if vec, ok := p.parse(body); ok {
			return vec
		}
	}
	return nil
}

// Embedder is an embedding backend using Ollama's /api/embeddings endpoint.
type Embedder struct {
	client *client
	model  string
	logger *zap.Logger
}

// EmbedderConfig holds the Ollama embedding settings.
type EmbedderConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewEmbedder creates an Ollama embedding backend.
func NewEmbedder(cfg *EmbedderConfig) *Embedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbedModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client: newClient(cfg.BaseURL, timeout, cfg.HTTPClient),
		model:  model,
		logger: logger,
	}
}

// Embed implements domain.Embedder. The request is sent with the "prompt" field first
// and retried once with "input" when no vector could be parsed.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	vec, err := e.request(ctx, map[string]string{"model": e.model, "prompt": text})
	if err == nil && len(vec) == 0 {
		metrics.EmbeddingFallbackTotal.WithLabelValues(e.model).Inc()
		e.logger.Debug("embedding response had no vector, retrying with input field",
			zap.String("model", e.model), zap.Int("input_len", len(text)))
		vec, err = e.request(ctx, map[string]string{"model": e.model, "input": text})
	}
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("ollama", e.model, "backend_error").Inc()
		return domain.EmbeddingResult{}, err
	}
	if len(vec) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("ollama", e.model, "empty_response").Inc()
		return domain.EmbeddingResult{}, domain.NewEmbeddingUnavailable(e.model, len(text))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("ollama", e.model).Observe(time.Since(start).Seconds())

	return domain.EmbeddingResult{Embedding: vec}, nil
}

func (e *Embedder) request(ctx context.Context, payload map[string]string) ([]float32, error) {
	body, err := e.client.postJSON(ctx, embeddingsPath, payload)
	if err != nil {
		return nil, err
	}
	return parseVector(body), nil
}

// HealthCheck verifies the server answers on /api/tags.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	_, err := e.client.get(ctx, "/api/tags")
	return err
}
