package ingest

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/document"
)

// Extractor turns raw file bytes into pages.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) ([]document.Page, error)
}

// Chunker splits pages into chunks.
type Chunker interface {
	Chunk(pages []document.Page) []document.Chunk
}

// BatchEmbedder vectorizes texts in input order.
type BatchEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the storage contract for indexed entries.
type VectorStore interface {
	Replace(ctx context.Context, source string, entries []document.Entry) (int, error)
	Count(ctx context.Context) (int, error)
}

// SessionStore records the last ingested source of a session.
type SessionStore interface {
	SetLastSource(ctx context.Context, id, source string) error
}
