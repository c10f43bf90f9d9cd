package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches sentinel domain errors by code and message so wrapped copies
// still compare equal under errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeNoContent        = "NO_CONTENT"
	ErrCodeTransientBackend = "TRANSIENT_BACKEND"
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeEmbedding        = "EMBEDDING_ERROR"
	ErrCodeConsistency      = "CONSISTENCY_WARNING"
	ErrCodeIncomplete       = "INCOMPLETE_DOCUMENT"
)

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// InvalidInput builds a validation error for bad caller arguments.
func InvalidInput(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// TransientBackend wraps a failure from storage, index, embedding or
// completion backends. Callers may retry.
func TransientBackend(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTransientBackend, message, err)
}

// ConfigurationError is fatal at startup and never retried.
func ConfigurationError(message string) *DomainError {
	return NewDomainError(ErrCodeConfiguration, message)
}

// Validation errors
var (
	ErrEmptyChunks        = NewDomainError(ErrCodeValidation, "no non-empty chunks to index")
	ErrInvalidChunkConfig = NewDomainError(ErrCodeValidation, "chunk size must be greater than overlap and overlap must be positive")
	ErrInvalidTopK        = NewDomainError(ErrCodeValidation, "top_k must be at least 1")
	ErrEmptyQuestion      = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrEmptyFile          = NewDomainError(ErrCodeValidation, "uploaded file is empty")
	ErrNotPDF             = NewDomainError(ErrCodeValidation, "only PDF files are allowed")
)

// Not found errors
var (
	ErrDocumentNotFound   = NewDomainError(ErrCodeNotFound, "document not found")
	ErrReindexJobNotFound = NewDomainError(ErrCodeNotFound, "reindex job not found")
)

// Already exists errors
var (
	ErrChunkAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "chunk already exists")
)

// Ingestion errors
var (
	ErrNoContent        = NewDomainError(ErrCodeNoContent, "document produced no extractable text")
	ErrEmbeddingCount   = NewDomainError(ErrCodeEmbedding, "embedding count does not match input count")
	ErrDocumentFailed   = NewDomainError(ErrCodeValidation, "document is in failed state")
	ErrStorageOperation = NewDomainError(ErrCodeTransientBackend, "storage operation failed")
	ErrIncompleteChunks = NewDomainError(ErrCodeIncomplete, "saved chunks do not match the expected count")
)
