package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig reports chunking or schema parameters that cannot
	// make progress (zero chunk size, overlap >= chunk size, dims <= 0).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedCapability reports an embedding request against a
	// chat-only backend.
	ErrUnsupportedCapability = errors.New("capability not supported by backend")

	// ErrDimensionMismatch reports an embedding whose length disagrees
	// with the declared schema or query vector.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ProviderError wraps a failure from a chat/embedding backend with the
// backend identity and the operation that failed.
type ProviderError struct {
	Backend string
	Op      string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StoreError wraps a vector store failure with the failed operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// SourceReadError reports an unreadable or unparsable document.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read document %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }
