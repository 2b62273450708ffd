package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type for retrieval operations.
type ErrorCode string

const (
	// ErrCodeInvalidFilter indicates a malformed or unsupported filter,
	// rejected before any store access.
	ErrCodeInvalidFilter ErrorCode = "INVALID_FILTER"
	// ErrCodeStoreUnavailable indicates the backing store could not be reached.
	// Retryable by the caller.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// RetrievalError represents a structured error for retrieval operations.
type RetrievalError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RetrievalError) Unwrap() error {
	return e.Cause
}

// InvalidFilter creates an invalid filter error.
func InvalidFilter(msg string) *RetrievalError {
	return &RetrievalError{Code: ErrCodeInvalidFilter, Message: msg}
}

// InvalidFilterf creates an invalid filter error with formatting.
func InvalidFilterf(format string, args ...any) *RetrievalError {
	return &RetrievalError{Code: ErrCodeInvalidFilter, Message: fmt.Sprintf(format, args...)}
}

// StoreUnavailable wraps a store failure.
func StoreUnavailable(msg string, cause error) *RetrievalError {
	return &RetrievalError{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *RetrievalError {
	return &RetrievalError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// CodeOf extracts the error code from any error.
// Returns ErrCodeInternal if the error is not a RetrievalError.
func CodeOf(err error) ErrorCode {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Code
	}
	return ErrCodeInternal
}
