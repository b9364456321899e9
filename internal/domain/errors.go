package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies domain-specific failures.
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeMalformedEncoding   ErrorType = "malformed_encoding"
	ErrorTypeRetryableExtraction ErrorType = "retryable_extraction"
	ErrorTypeFatalExtraction     ErrorType = "fatal_extraction"
	ErrorTypeCacheComputation    ErrorType = "cache_computation"
	ErrorTypeAPI                 ErrorType = "api"
	ErrorTypeUnsupportedDocument ErrorType = "unsupported_document"
	ErrorTypeConfig              ErrorType = "config"
	ErrorTypeIO                  ErrorType = "io"
)

// DomainError carries a failure classification alongside its cause.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error.
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func MalformedEncodingError(message string, err error) *DomainError {
	return NewError(ErrorTypeMalformedEncoding, message, err)
}

func RetryableExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeRetryableExtraction, message, err)
}

func FatalExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeFatalExtraction, message, err)
}

func CacheComputationError(message string, err error) *DomainError {
	return NewError(ErrorTypeCacheComputation, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func UnsupportedDocumentError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnsupportedDocument, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// IsType reports whether err is a DomainError of the given type anywhere
// along its unwrap chain.
func IsType(err error, t ErrorType) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Type == t {
			return true
		}
		err = de.Err
		if err == nil {
			return false
		}
	}
	return false
}

// IsRetryable reports whether err represents a transient extraction failure.
func IsRetryable(err error) bool {
	return IsType(err, ErrorTypeRetryableExtraction)
}

// IsMalformed reports whether err represents a D-TOON grammar violation.
func IsMalformed(err error) bool {
	return IsType(err, ErrorTypeMalformedEncoding)
}

// IsUnsupported reports whether err represents an unsupported input document.
func IsUnsupported(err error) bool {
	return IsType(err, ErrorTypeUnsupportedDocument)
}
