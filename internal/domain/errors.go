package domain

import "fmt"

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

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeIndexBuild    = "INDEX_BUILD_ERROR"
	ErrCodeGeneration    = "GENERATION_ERROR"
	ErrCodeFetch         = "FETCH_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidChunkConfig   = NewDomainError(ErrCodeConfiguration, "chunk overlap must be smaller than chunk size")
)

// Not found errors
var (
	ErrSessionNotFound = NewDomainError(ErrCodeNotFound, "session not found")
)

// Pipeline errors
var (
	ErrUnparseableMarkup = NewDomainError(ErrCodeParse, "markup could not be parsed as HTML")
	ErrEmptyRecord       = NewDomainError(ErrCodeParse, "extracted record has no text")
)

// IsNotFound reports whether err is a NOT_FOUND domain error.
func IsNotFound(err error) bool {
	domainErr, ok := err.(*DomainError)
	return ok && domainErr.Code == ErrCodeNotFound
}
