// Package boltindex is an embedded vector store on bbolt with brute-force cosine search.
// It serves single-node deployments that run without Redis.
package boltindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/retrieval"
)

var bucketChunks = []byte("chunks")

// DefaultOpenTimeout bounds waiting for the file lock held by another process.
const DefaultOpenTimeout = 5 * time.Second

// record is the on-disk form of an entry.
type record struct {
	Text   string            `json:"t"`
	Meta   document.Metadata `json:"m"`
	Vector []float32         `json:"v"`
}

// Store keeps every entry in memory and persists it to a bbolt file.
type Store struct {
	db     *bbolt.DB
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]record
}

// Open opens or creates the store file at path and loads existing entries.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: DefaultOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketChunks)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create chunks bucket: %w", err)
	}

	s := &Store{db: db, logger: logger, entries: make(map[string]record)}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("Opened bolt index", zap.String("path", path), zap.Int("entries", len(s.entries)))
	return s, nil
}

func (s *Store) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				s.logger.Warn("Skipping corrupted entry", zap.ByteString("key", k), zap.Error(err))
				return nil
			}
			s.entries[string(k)] = rec
			return nil
		})
	})
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Upsert writes entries, replacing any entry with the same identity.
func (s *Store) Upsert(_ context.Context, entries []document.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putAll(tx.Bucket(bucketChunks), entries)
	})
	if err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(entries), err)
	}
	for _, e := range entries {
		s.entries[e.ID] = toRecord(e)
	}
	return nil
}

// Replace removes every entry of source and writes entries in one transaction.
func (s *Store) Replace(_ context.Context, source string, entries []document.Entry) (int, error) {
	for _, e := range entries {
		if e.Metadata.SourceName != source {
			return 0, fmt.Errorf("replace %q: entry %s belongs to %q", source, e.ID, e.Metadata.SourceName)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := s.keysOf(source)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		for _, k := range stale {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return putAll(b, entries)
	})
	if err != nil {
		return 0, fmt.Errorf("replace source: %w", err)
	}

	for _, k := range stale {
		delete(s.entries, k)
	}
	for _, e := range entries {
		s.entries[e.ID] = toRecord(e)
	}
	return len(stale), nil
}

// DeleteSource removes every entry whose source name equals source.
func (s *Store) DeleteSource(ctx context.Context, source string) (int, error) {
	return s.Replace(ctx, source, nil)
}

// Query returns up to n entries nearest to vector by cosine distance, optionally
// restricted to source. Entries of another dimension are skipped.
func (s *Store) Query(_ context.Context, vector []float32, n int, source string) ([]retrieval.Candidate, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		id   string
		rec  record
		dist float64
	}
	hits := make([]scored, 0, len(s.entries))
	for id, rec := range s.entries {
		if source != "" && rec.Meta.SourceName != source {
			continue
		}
		if len(rec.Vector) != len(vector) {
			continue
		}
		hits = append(hits, scored{id: id, rec: rec, dist: cosineDistance(vector, rec.Vector)})
	}
	slices.SortFunc(hits, func(a, b scored) int {
		if a.dist != b.dist {
			if a.dist < b.dist {
				return -1
			}
			return 1
		}
		if a.id < b.id {
			return -1
		}
		if a.id > b.id {
			return 1
		}
		return 0
	})
	if len(hits) > n {
		hits = hits[:n]
	}

	out := make([]retrieval.Candidate, len(hits))
	for i, h := range hits {
		meta := h.rec.Meta
		dist := h.dist
		out[i] = retrieval.Candidate{ID: h.id, Text: h.rec.Text, Meta: &meta, Distance: &dist}
	}
	return out, nil
}

// Count returns the total number of stored entries.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// keysOf must be called with mu held.
func (s *Store) keysOf(source string) []string {
	var keys []string
	for id, rec := range s.entries {
		if rec.Meta.SourceName == source {
			keys = append(keys, id)
		}
	}
	return keys
}

func putAll(b *bbolt.Bucket, entries []document.Entry) error {
	if b == nil {
		return errors.New("chunks bucket not found")
	}
	for _, e := range entries {
		data, err := json.Marshal(toRecord(e))
		if err != nil {
			return fmt.Errorf("marshal %s: %w", e.ID, err)
		}
		if err := b.Put([]byte(e.ID), data); err != nil {
			return err
		}
	}
	return nil
}

func toRecord(e document.Entry) record {
	return record{Text: e.Text, Meta: e.Metadata, Vector: e.Vector}
}

// cosineDistance returns 1 - cosine similarity; zero vectors are at distance 1.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
