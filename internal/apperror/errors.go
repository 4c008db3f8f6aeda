package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller-supplied data that breaks a precondition.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing entity, or an event hidden by visibility.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks any other failure of the persistence layer.
	ErrStorage = errors.New("storage failure")
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

func (e *FieldError) Unwrap() error { return ErrValidation }

// Validation builds a FieldError.
func Validation(field, msg string) error {
	return &FieldError{Field: field, Msg: msg}
}

// NotFound wraps ErrNotFound with the kind and id of the missing record.
func NotFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}

// StorageError wraps a driver error raised while running Op.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

// Storage wraps err as a StorageError unless it is nil or already classified.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
