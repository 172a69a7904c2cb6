package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField signals a backend hit lacking the configured text field.
	ErrMissingField = errors.New("missing field")
	// ErrMissingConfiguration signals an operation that requires store
	// configuration which was not supplied at construction time.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrTemplateSubstitution signals a custom query template referencing an
	// unbound placeholder or not parsing after substitution.
	ErrTemplateSubstitution = errors.New("template substitution failed")
	// ErrDuplicateID signals a bulk create colliding with an existing document ID.
	ErrDuplicateID = errors.New("duplicate document id")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
)

// MissingFieldError wraps ErrMissingField with the absent field name.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %q absent from hit source", ErrMissingField.Error(), e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// NewMissingField creates a missing field error for a hit decode failure.
func NewMissingField(field string) error {
	return &MissingFieldError{Field: field}
}

// TemplateError wraps ErrTemplateSubstitution with the failure detail.
type TemplateError struct {
	Detail string
}

func (e *TemplateError) Error() string {
	return ErrTemplateSubstitution.Error() + ": " + e.Detail
}

func (e *TemplateError) Unwrap() error { return ErrTemplateSubstitution }

// NewTemplateError creates a template substitution error.
func NewTemplateError(format string, args ...any) error {
	return &TemplateError{Detail: fmt.Sprintf(format, args...)}
}
