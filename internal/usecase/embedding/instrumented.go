package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
)

// DefaultSlowThreshold is the call duration above which a successful embedding is logged at warn.
const DefaultSlowThreshold = 10 * time.Second

// InstrumentedEmbedder logs every embedding call with the request-scoped logger.
// Backends record the transport metrics; input text is never logged.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	fields []zap.Field
	slow   time.Duration
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. provider and model are attached to every line.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, log *zap.Logger) *InstrumentedEmbedder {
	if log == nil {
		log = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:  inner,
		fields: []zap.Field{zap.String("provider", provider), zap.String("model", model)},
		slow:   DefaultSlowThreshold,
		logger: log,
	}
}

// Embed delegates to inner.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	elapsed := time.Since(start)

	log := logger.FromContext(ctx, p.logger).With(p.fields...)
	if err != nil {
		log.Error("Embedding request failed",
			zap.Int("input_len", len(text)),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	fields := []zap.Field{
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	}
	if elapsed > p.slow {
		log.Warn("Slow embedding request", append(fields, zap.Int("input_len", len(text)))...)
	} else {
		log.Debug("Embedding request completed", fields...)
	}
	return result, nil
}

// HealthCheck delegates to inner when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}
