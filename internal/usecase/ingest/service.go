// Package ingest turns uploaded documents into indexed chunks.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/document"
	"github.com/kailas-cloud/ragchat/internal/domain/text"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// NoTextNote is reported when a document yields no chunks.
const NoTextNote = "document has no extractable text (scanned without OCR?) or everything was empty after cleaning"

// DefaultBatchSize is the number of chunk texts sent to the embedder at once.
const DefaultBatchSize = 64

var tracer = otel.Tracer("github.com/kailas-cloud/ragchat/ingest")

// Request is one document to ingest.
type Request struct {
	Filename  string
	Data      []byte
	SessionID string
}

// Result summarizes an ingestion.
type Result struct {
	ContentHash     string
	SourceName      string
	AddedChunks     int
	CollectionCount int
	Note            string
	SessionID       string
}

// Service runs the ingestion pipeline.
type Service struct {
	extractor  Extractor
	chunker    Chunker
	embedder   BatchEmbedder
	store      VectorStore
	sessions   SessionStore
	batchSize  int
	uploadsDir string
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets how many chunk texts are embedded per sub-batch.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithUploadsDir keeps a copy of every ingested file under dir.
func WithUploadsDir(dir string) Option {
	return func(s *Service) { s.uploadsDir = dir }
}

// WithSessions makes each ingested source the default of the caller's session.
func WithSessions(ss SessionStore) Option {
	return func(s *Service) { s.sessions = ss }
}

// New creates an ingestion service.
func New(ex Extractor, ch Chunker, emb BatchEmbedder, store VectorStore, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		extractor: ex,
		chunker:   ch,
		embedder:  emb,
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest extracts, chunks, embeds and indexes one document. Entries previously indexed
// under the same source name are replaced atomically after embedding succeeds, so a
// failed run leaves them untouched.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	source := filepath.Base(strings.TrimSpace(req.Filename))
	if source == "" || source == "." || source == string(filepath.Separator) {
		return Result{}, fmt.Errorf("missing file name: %w", domain.ErrInvalidRequest)
	}

	ctx, span := tracer.Start(ctx, "ingest.Ingest")
	defer span.End()

	doc := document.New(source, req.Data)
	span.SetAttributes(
		attribute.String("ragchat.source", source),
		attribute.String("ragchat.content_hash", doc.ContentHash),
		attribute.Int("ragchat.bytes", len(req.Data)),
	)
	log := logger.WithTrace(ctx, logger.FromContext(ctx, s.logger)).With(
		zap.String("source", source),
		zap.String("content_hash", doc.ContentHash),
	)

	res, err := s.ingest(ctx, doc, req)
	if err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingest failed")
		log.Warn("Ingest failed", zap.Error(err))
		return Result{}, err
	}

	status := "indexed"
	if res.AddedChunks == 0 {
		status = "empty"
	}
	metrics.IngestDocumentsTotal.WithLabelValues(status).Inc()
	metrics.IngestChunksTotal.Add(float64(res.AddedChunks))
	span.SetAttributes(attribute.Int("ragchat.added_chunks", res.AddedChunks))
	log.Info("Document ingested",
		zap.Int("added_chunks", res.AddedChunks),
		zap.Int("collection_count", res.CollectionCount),
	)
	return res, nil
}

func (s *Service) ingest(ctx context.Context, doc document.Document, req Request) (Result, error) {
	res := Result{ContentHash: doc.ContentHash, SourceName: doc.SourceName, SessionID: req.SessionID}

	if s.uploadsDir != "" {
		if err := s.saveUpload(doc.SourceName, req.Data); err != nil {
			return Result{}, err
		}
	}

	pages, err := s.extractor.Extract(ctx, doc.SourceName, req.Data)
	if err != nil {
		return Result{}, fmt.Errorf("extract text: %w", err)
	}
	for i := range pages {
		pages[i].Text = text.Sanitize(pages[i].Text)
	}
	chunks := s.chunker.Chunk(pages)

	if len(chunks) == 0 {
		count, err := s.store.Count(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("count entries: %w", err)
		}
		res.CollectionCount = count
		res.Note = NoTextNote
		return res, nil
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return Result{}, err
	}

	entries := make([]document.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = document.NewEntry(doc, c, vectors[i])
	}
	removed, err := s.store.Replace(ctx, doc.SourceName, entries)
	if err != nil {
		return Result{}, fmt.Errorf("replace entries: %w", err)
	}
	logger.FromContext(ctx, s.logger).Debug("Replaced previous entries",
		zap.String("source", doc.SourceName), zap.Int("removed", removed))

	count, err := s.store.Count(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count entries: %w", err)
	}
	res.AddedChunks = len(entries)
	res.CollectionCount = count

	if s.sessions != nil && req.SessionID != "" {
		if err := s.sessions.SetLastSource(ctx, req.SessionID, doc.SourceName); err != nil {
			logger.FromContext(ctx, s.logger).Warn("Failed to record session source", zap.Error(err))
		}
	}
	return res, nil
}

// embedChunks embeds chunk texts in sub-batches and checks that the whole document
// shares one dimensionality.
func (s *Service) embedChunks(ctx context.Context, chunks []document.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		vecs, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, vecs...)
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &domain.DimensionError{Index: i, Want: dim, Got: len(v)}
		}
	}
	return vectors, nil
}

func (s *Service) saveUpload(name string, data []byte) error {
	if err := os.MkdirAll(s.uploadsDir, 0o750); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.uploadsDir, name), data, 0o600); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return nil
}
