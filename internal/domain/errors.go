package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingUnavailable signals that the embedding backend returned no usable vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEmptyEmbeddingBatch signals an empty batch or an empty vector for non-blank input.
	ErrEmptyEmbeddingBatch = errors.New("empty embedding batch")
	// ErrInconsistentEmbeddingDimension signals vectors of different lengths in one batch.
	ErrInconsistentEmbeddingDimension = errors.New("inconsistent embedding dimension")
	// ErrUnsupportedProvider signals a provider name with no implementation.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrBackendRequestFailed signals a transport error or non-2xx response from a backend.
	ErrBackendRequestFailed = errors.New("backend request failed")
	// ErrUnsupportedDocument signals a file type no extractor handles.
	ErrUnsupportedDocument = errors.New("unsupported document type")
	// ErrInvalidRequest signals malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// EmbeddingUnavailableError wraps ErrEmbeddingUnavailable with the model and input length.
// The input text itself is never carried.
type EmbeddingUnavailableError struct {
	Model    string
	InputLen int
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("%s: model=%q input_len=%d", ErrEmbeddingUnavailable.Error(), e.Model, e.InputLen)
}

func (e *EmbeddingUnavailableError) Unwrap() error { return ErrEmbeddingUnavailable }

// NewEmbeddingUnavailable creates an embedding unavailable error.
func NewEmbeddingUnavailable(model string, inputLen int) error {
	return &EmbeddingUnavailableError{Model: model, InputLen: inputLen}
}

// DimensionError wraps ErrInconsistentEmbeddingDimension with the offending position.
type DimensionError struct {
	Index int
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: vector %d has %d dimensions, want %d",
		ErrInconsistentEmbeddingDimension.Error(), e.Index, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrInconsistentEmbeddingDimension }

// BackendError wraps ErrBackendRequestFailed with the backend name and HTTP status.
// Status is 0 for transport-level failures.
type BackendError struct {
	Backend string
	Status  int
	Err     error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrBackendRequestFailed.Error(), e.Backend)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBackendRequestFailed}
	}
	return []error{ErrBackendRequestFailed, e.Err}
}
