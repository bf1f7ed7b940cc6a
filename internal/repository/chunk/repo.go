// Package chunk stores indexed chunks in Redis or Valkey and answers KNN queries.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
)

// store is the consumer interface for chunk storage (ISP).
type store interface {
	CreateIndex(ctx context.Context, schema db.Schema) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, q *db.CountQuery) (int, error)
	AddMembers(ctx context.Context, setKey string, items []db.HashSetItem) error
	ReplaceMembers(ctx context.Context, setKey string, items []db.HashSetItem) (int, error)
}

// Repo implements the vector store over a db.Store. The FT index is created lazily
// with the dimension of the first written batch.
type Repo struct {
	store  store
	hnsw   HNSWConfig
	logger *zap.Logger

	mu         sync.Mutex
	indexReady bool
}

// New creates a chunk repository.
func New(s store, hnsw HNSWConfig, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, hnsw: hnsw, logger: logger}
}

// Upsert writes entries, replacing any entry with the same identity.
func (r *Repo) Upsert(ctx context.Context, entries []document.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.ensureIndex(ctx, len(entries[0].Vector)); err != nil {
		return err
	}
	for source, items := range groupBySource(entries) {
		if err := r.store.AddMembers(ctx, sourceKey(source), items); err != nil {
			return fmt.Errorf("upsert %d chunks: %w", len(items), err)
		}
	}
	return nil
}

// Replace atomically removes every entry of source and writes entries.
// Entries must all belong to source.
func (r *Repo) Replace(ctx context.Context, source string, entries []document.Entry) (int, error) {
	items := make([]db.HashSetItem, 0, len(entries))
	for _, e := range entries {
		if e.Metadata.SourceName != source {
			return 0, fmt.Errorf("replace %q: entry %s belongs to %q", source, e.ID, e.Metadata.SourceName)
		}
		items = append(items, toHashItem(e))
	}
	if len(entries) > 0 {
		if err := r.ensureIndex(ctx, len(entries[0].Vector)); err != nil {
			return 0, err
		}
	}

	removed, err := r.store.ReplaceMembers(ctx, sourceKey(source), items)
	if err != nil {
		return 0, fmt.Errorf("replace source: %w", err)
	}
	r.logger.Debug("Replaced source chunks",
		zap.String("source", source),
		zap.Int("removed", removed),
		zap.Int("added", len(items)),
	)
	return removed, nil
}

// DeleteSource removes every entry whose source name equals source.
func (r *Repo) DeleteSource(ctx context.Context, source string) (int, error) {
	removed, err := r.store.ReplaceMembers(ctx, sourceKey(source), nil)
	if err != nil {
		return 0, fmt.Errorf("delete source: %w", err)
	}
	return removed, nil
}

// Query returns up to n nearest entries to vector, optionally restricted to source.
// Distance is the raw cosine distance (smaller is more similar).
func (r *Repo) Query(ctx context.Context, vector []float32, n int, source string) ([]retrieval.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    IndexName,
		Vector:       vector,
		K:            n,
		ReturnFields: returnFields,
	}
	if source != "" {
		q.Filters = []db.TagFilter{{Field: fieldSourceName, Value: source}}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("knn search: %w", err)
	}

	out := make([]retrieval.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		out = append(out, toCandidate(entry))
	}
	return out, nil
}

// Count returns the total number of stored entries.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, &db.CountQuery{IndexName: IndexName, Query: "*", KeyPrefix: KeyPrefix})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (r *Repo) ensureIndex(ctx context.Context, dim int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexReady {
		return nil
	}

	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if !exists {
		if err := r.store.CreateIndex(ctx, chunkSchema(dim, r.hnsw)); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index: %w", err)
		}
		r.logger.Info("Created chunk index", zap.String("index", IndexName), zap.Int("dimensions", dim))
	}
	r.indexReady = true
	return nil
}

func groupBySource(entries []document.Entry) map[string][]db.HashSetItem {
	out := make(map[string][]db.HashSetItem)
	for _, e := range entries {
		out[e.Metadata.SourceName] = append(out[e.Metadata.SourceName], toHashItem(e))
	}
	return out
}
