package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Storage errors
	ErrStorage = fmt.Errorf("storage failure")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Request errors
	ErrRateLimited = fmt.Errorf("rate limit exceeded")
)

// StorageError reports a persistence failure the engine cannot recover from.
//
// It satisfies errors.Is(err, ErrStorage). The driver error stays reachable through
// Unwrap for logging, but callers should branch on ErrStorage only.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a [StorageError] for op. A nil err returns nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("storage: %v", e.Err)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
