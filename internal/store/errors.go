package store

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound         = errors.New("credential not found")
	ErrBackendNotAvail  = errors.New("credential backend not available")
	ErrUnknownBackend   = errors.New("unknown credential backend")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidName      = errors.New("invalid credential name")
	ErrReservedName     = errors.New("credential name and user name are reserved by the backend")
)

// StoreError wraps a backend failure with the operation and credential name
type StoreError struct {
	Op   string
	Name string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("credential operation '%s' failed for %q: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("credential operation '%s' failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(op, name string, err error) *StoreError {
	return &StoreError{
		Op:   op,
		Name: name,
		Err:  err,
	}
}

// IsNotFound reports whether err means the named credential does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
