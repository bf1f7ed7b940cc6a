package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// defaultErrorHandlers maps sentinels to responses, first match wins.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrUnsupportedDocument, http.StatusBadRequest, ErrorCodeUnsupportedDocument),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, ErrorCodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrEmptyEmbeddingBatch, http.StatusBadGateway, ErrorCodeEmptyEmbeddingBatch),
		sentinelHandler(domain.ErrInconsistentEmbeddingDimension, http.StatusBadGateway, ErrorCodeInconsistentDim),
		sentinelHandler(domain.ErrBackendRequestFailed, http.StatusBadGateway, ErrorCodeBackendFailed),
	}
}

// safeSentinels are the errors whose text may reach clients.
var safeSentinels = []error{
	domain.ErrInvalidRequest,
	domain.ErrUnsupportedDocument,
	domain.ErrRateLimited,
	domain.ErrEmbeddingUnavailable,
	domain.ErrEmptyEmbeddingBatch,
	domain.ErrInconsistentEmbeddingDimension,
	domain.ErrBackendRequestFailed,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range safeSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
