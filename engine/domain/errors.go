package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrMissingField        = errors.New("missing field")
	ErrInvalidField        = errors.New("invalid field")
	ErrNoContext           = errors.New("no context found")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrEmptyContent        = errors.New("empty content")
	ErrInvalidEntityType   = errors.New("invalid entity type")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// Message is the user-facing text returned by the front door.
func (e *ValidationError) Message() string {
	switch {
	case errors.Is(e.Wrapped, ErrMissingField):
		return fmt.Sprintf("Campo '%s' é obrigatório.", e.Field)
	case errors.Is(e.Wrapped, ErrInvalidField):
		return fmt.Sprintf("'%s' deve ser uma lista com ao menos 1 item.", e.Field)
	default:
		return e.Error()
	}
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
