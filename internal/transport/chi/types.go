package chi

import (
	"encoding/json"

	domchat "github.com/kailas-cloud/ragchat/internal/domain/chat"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeUnsupportedDocument  ErrorCode = "unsupported_document"
	ErrorCodePayloadTooLarge      ErrorCode = "payload_too_large"
	ErrorCodeRateLimited          ErrorCode = "rate_limited"
	ErrorCodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	ErrorCodeEmptyEmbeddingBatch  ErrorCode = "empty_embedding_batch"
	ErrorCodeInconsistentDim      ErrorCode = "inconsistent_dimension"
	ErrorCodeBackendFailed        ErrorCode = "backend_request_failed"
	ErrorCodeInternal             ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// IngestResponse is the body of POST /ingest.
type IngestResponse struct {
	ContentHash     string `json:"content_hash"`
	SourceName      string `json:"source_name"`
	AddedChunks     int    `json:"added_chunks"`
	CollectionCount int    `json:"collection_count"`
	Note            string `json:"note,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
}

// ChatRequest is the body of POST /chat. History entries are decoded leniently:
// malformed turns are dropped rather than rejected.
type ChatRequest struct {
	Message   string            `json:"message"`
	TopK      *int              `json:"top_k,omitempty"`
	Source    *string           `json:"source,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	History   []json.RawMessage `json:"history,omitempty"`
	MMR       *bool             `json:"mmr,omitempty"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Answer      string                `json:"answer"`
	UsedSources []domchat.SourceChunk `json:"used_sources"`
	Model       *string               `json:"model"`
	Extra       chatuc.Extra          `json:"extra"`
	SessionID   string                `json:"session_id,omitempty"`
}

// EmbedResponse is the body of GET /debug/embed.
type EmbedResponse struct {
	Len     int       `json:"len"`
	Preview []float32 `json:"preview"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	CollectionCount int `json:"collection_count"`
}
