// Package retrieve finds the stored fragments most relevant to a question.
package retrieve

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// OverFetchFactor multiplies k when querying the store.
const OverFetchFactor = 3

// Service retrieves ranked contexts for a question.
type Service struct {
	embedder QueryEmbedder
	searcher Searcher
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(embedder QueryEmbedder, searcher Searcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, searcher: searcher, logger: logger}
}

// Retrieve returns up to k fragments for question, nearest first, optionally
// restricted to source. Fragments without a distance rank after all others.
func (s *Service) Retrieve(ctx context.Context, question string, k int, source string) (retrieval.Result, error) {
	if k <= 0 {
		return retrieval.Result{}, nil
	}

	vec, err := s.embedder.EmbedOne(ctx, question)
	if err != nil {
		return retrieval.Result{}, fmt.Errorf("embed question: %w", err)
	}

	fetch := max(OverFetchFactor*k, k)
	cands, err := s.searcher.Query(ctx, vec, fetch, source)
	if err != nil {
		return retrieval.Result{}, fmt.Errorf("query store: %w", err)
	}

	res := Rank(cands, k)
	metrics.RetrievalResults.Observe(float64(res.Len()))
	logger.FromContext(ctx, s.logger).Debug("Retrieved contexts",
		zap.Int("k", k),
		zap.Int("fetched", len(cands)),
		zap.Int("returned", res.Len()),
		zap.String("source", source),
	)
	return res, nil
}

// Rank assigns identities, orders candidates by ascending distance with nil distances
// last, keeps the first k and returns them as parallel slices.
func Rank(cands []retrieval.Candidate, k int) retrieval.Result {
	if len(cands) == 0 || k <= 0 {
		return retrieval.Result{}
	}

	type ranked struct {
		id string
		c  retrieval.Candidate
	}
	items := make([]ranked, len(cands))
	for i, c := range cands {
		items[i] = ranked{id: identity(c.Meta, i), c: c}
	}
	slices.SortStableFunc(items, func(a, b ranked) int {
		return compareDistance(a.c.Distance, b.c.Distance)
	})
	items = items[:min(k, len(items))]

	res := retrieval.Result{
		Contexts:  make([]string, len(items)),
		IDs:       make([]string, len(items)),
		Metas:     make([]*document.Metadata, len(items)),
		Distances: make([]*float64, len(items)),
	}
	for i, it := range items {
		res.Contexts[i] = it.c.Text
		res.IDs[i] = it.id
		res.Metas[i] = it.c.Meta
		res.Distances[i] = it.c.Distance
	}
	return res
}

func identity(meta *document.Metadata, i int) string {
	if meta == nil {
		return "doc:" + strconv.Itoa(i)
	}
	return meta.DisplayID()
}

func compareDistance(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}
