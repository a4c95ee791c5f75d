package model

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery marks user-correctable bad input (empty query text).
var ErrInvalidQuery = errors.New("query text must not be empty")

// ErrRetrievalUnavailable is returned when every configured index lookup
// failed for a request.
var ErrRetrievalUnavailable = errors.New("all index lookups failed")

// EmbeddingError wraps an embedding provider failure.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding provider: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError wraps a generation provider failure or timeout.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation provider: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PipelineError tags any stage failure with the stage it occurred in.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
