package ragchat

import "github.com/kailas-cloud/ragchat/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmbeddingUnavailable           = domain.ErrEmbeddingUnavailable
	ErrEmptyEmbeddingBatch            = domain.ErrEmptyEmbeddingBatch
	ErrInconsistentEmbeddingDimension = domain.ErrInconsistentEmbeddingDimension
	ErrBackendRequestFailed           = domain.ErrBackendRequestFailed
	ErrUnsupportedDocument            = domain.ErrUnsupportedDocument
	ErrInvalidRequest                 = domain.ErrInvalidRequest
)
