package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned by stores when a unique constraint rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrValidation marks user-correctable input failures.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the account being registered already exists.
	ErrConflict = errors.New("user already exists")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDestroyFailed indicates the session store could not invalidate a session.
	ErrDestroyFailed = errors.New("session destroy failed")
	// ErrUnavailableDependency indicates an upstream service or subprocess could not be reached.
	ErrUnavailableDependency = errors.New("dependency unavailable")
)

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return ErrValidation.Error() + ": " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
