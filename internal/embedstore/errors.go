package embedstore

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingFailed means the provider failed while inserting; nothing was stored.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrDimensionMismatch means a vector length differs from the store dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrPersistence means the snapshot write failed. The in-memory change is kept.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidRecord means a record has an empty text or source, or a negative page.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrAlreadyInitialized is returned by Init after a store was initialized.
	ErrAlreadyInitialized = errors.New("embedding store already initialized")
)

// EmbeddingFailedError wraps the provider error that aborted an insert.
type EmbeddingFailedError struct {
	Source string
	Err    error
}

func (e *EmbeddingFailedError) Error() string {
	return fmt.Sprintf("embedding failed for source %q: %v", e.Source, e.Err)
}

func (e *EmbeddingFailedError) Unwrap() error { return e.Err }

func (e *EmbeddingFailedError) Is(target error) bool { return target == ErrEmbeddingFailed }

// DimensionMismatchError reports the expected and actual vector lengths.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: store has %d, vector has %d", e.Want, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// PersistenceError wraps a failed snapshot write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
