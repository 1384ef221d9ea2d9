package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a log record does not exist.
var ErrNotFound = errors.New("log record not found")

// ValidationError is returned when the caller supplies invalid input.
// Handlers should convert this to HTTP 400 rather than 500.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// StoreError wraps a persistence failure (connectivity, constraint violation).
// Op names the store operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
