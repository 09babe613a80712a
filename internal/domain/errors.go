package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals a missing credential or provider setting. Fatal for a run.
	ErrConfiguration = errors.New("classifier not configured")
	// ErrEmptyInput signals a keyword list with no usable entries. Fatal for a run.
	ErrEmptyInput = errors.New("no keywords found")
	// ErrInvalidInput signals an upload that cannot be parsed into keywords.
	ErrInvalidInput = errors.New("invalid keyword input")
	// ErrInvalidResponse signals a classifier payload that does not match the expected shape.
	ErrInvalidResponse = errors.New("invalid classifier response")
	// ErrRateLimited signals remote throttling.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransport signals any other remote classifier failure.
	ErrTransport = errors.New("classifier transport error")
	// ErrQuotaExceeded signals an exhausted token budget.
	ErrQuotaExceeded = errors.New("token quota exceeded")
	// ErrRunInProgress signals an attempt to start a run while another is analyzing.
	ErrRunInProgress = errors.New("analysis already in progress")
	// ErrNoRun signals a read against a session that never started a run.
	ErrNoRun = errors.New("no analysis run")
)

// IsFatal reports whether err must abort the whole run instead of a single batch.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrEmptyInput)
}

// BatchError wraps the cause of a failed batch with its position in the run.
type BatchError struct {
	Index int
	Size  int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d keywords): %v", e.Index+1, e.Size, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// NewBatchError creates a batch error for the zero-based batch index.
func NewBatchError(index, size int, err error) error {
	return &BatchError{Index: index, Size: size, Err: err}
}
