package retrieve

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
)

// QueryEmbedder vectorizes a question.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Searcher finds the entries nearest to a vector.
type Searcher interface {
	Query(ctx context.Context, vector []float32, n int, source string) ([]retrieval.Candidate, error)
}
