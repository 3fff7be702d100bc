// Package types holds the error taxonomy shared by the refiner packages.
package types

import (
	"errors"
	"io/fs"
	"os"
)

// ErrorCode classifies failures surfaced by the refiner.
type ErrorCode string

const (
	ErrFileNotFound       ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrConfig             ErrorCode = "CONFIG_ERROR"
	ErrEncoding           ErrorCode = "ENCODING_ERROR"
	ErrExtractionMismatch ErrorCode = "EXTRACTION_MISMATCH"
	ErrNoPlacementSlot    ErrorCode = "NO_PLACEMENT_SLOT"
	ErrValidation         ErrorCode = "VALIDATION_ERROR"
	ErrWriteFailure       ErrorCode = "WRITE_FAILURE"
	ErrInternal           ErrorCode = "INTERNAL_ERROR"
)

// AppError is an error carrying a code and an optional cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// CodeOf reports the code of the first AppError in err's chain.
// Bare filesystem errors map to FILE_NOT_FOUND or WRITE_FAILURE.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, fs.ErrNotExist) {
		return ErrFileNotFound
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return ErrWriteFailure
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
