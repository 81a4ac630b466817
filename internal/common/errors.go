package common

import (
	"errors"
	"net/http"
)

// ErrValidation marks errors caused by invalid caller input. Domain packages wrap it so
// callers can classify failures with errors.Is.
var ErrValidation = errors.New("validation failed")

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsValidation reports whether err was caused by invalid input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ValidationError wraps err as a 400 AppError with the canonical validation code.
func ValidationError(message string, err error) *AppError {
	return NewAppError("VALIDATION_FAILED", message, http.StatusBadRequest, err)
}
