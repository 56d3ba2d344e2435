package store

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("item not found")

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid %q", e.Field)
}

// PersistError reports that a mutation was applied in memory but could not be
// made durable. The in-memory list stays authoritative.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return "persist items: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
