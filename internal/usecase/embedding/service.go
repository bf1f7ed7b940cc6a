// Package embedding turns batches of texts into validated vectors.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// DefaultConcurrency bounds simultaneous backend requests per batch.
const DefaultConcurrency = 4

// Service embeds batches through a single-text backend.
type Service struct {
	embedder    domain.Embedder
	concurrency int
	logger      *zap.Logger
}

// NewService creates an embedding service. concurrency <= 0 uses DefaultConcurrency.
func NewService(embedder domain.Embedder, concurrency int, logger *zap.Logger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, concurrency: concurrency, logger: logger}
}

// Embed returns one vector per input in input order. Blank inputs map to an empty
// vector without a backend call. The first backend failure cancels the rest.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embed batch: %w", domain.ErrEmptyEmbeddingBatch)
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			out[i] = []float32{}
			continue
		}
		g.Go(func() error {
			res, err := s.embedder.Embed(gctx, trimmed)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			out[i] = res.Embedding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := validate(texts, out); err != nil {
		s.logger.Warn("Embedding batch rejected", zap.Int("batch_size", len(texts)), zap.Error(err))
		return nil, err
	}
	return out, nil
}

// EmbedOne embeds a single text and rejects an empty result.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embed blank text: %w", domain.ErrEmptyEmbeddingBatch)
	}
	return vecs[0], nil
}

// HealthCheck delegates to the backend when it supports health checks.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.embedder.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}

// validate checks that every non-blank input got a vector and that all non-empty
// vectors share one dimensionality.
func validate(texts []string, vecs [][]float32) error {
	dim := 0
	for i, v := range vecs {
		if len(v) == 0 {
			if strings.TrimSpace(texts[i]) != "" {
				return fmt.Errorf("text %d: %w", i, domain.ErrEmptyEmbeddingBatch)
			}
			continue
		}
		if dim == 0 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return &domain.DimensionError{Index: i, Want: dim, Got: len(v)}
		}
	}
	return nil
}
