package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeConfiguration      ErrorType = "configuration_required"
	ErrorTypeInputRequired      ErrorType = "input_required"
	ErrorTypeProvider           ErrorType = "provider"
	ErrorTypeCredentialRejected ErrorType = "credential_rejected"
	ErrorTypeBusy               ErrorType = "busy"
	ErrorTypeTimeout            ErrorType = "timeout"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeInternal           ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewConfigurationError signals that the API credential has not been configured.
func NewConfigurationError(message string) *AppError {
	return newError(ErrorTypeConfiguration, http.StatusPreconditionFailed, message, nil)
}

// NewInputRequiredError signals that neither a file nor a URL was supplied.
func NewInputRequiredError(message string) *AppError {
	return newError(ErrorTypeInputRequired, http.StatusBadRequest, message, nil)
}

// NewProviderError wraps a transport, provider or mapping failure.
func NewProviderError(message string, cause error) *AppError {
	return newError(ErrorTypeProvider, http.StatusBadGateway, message, cause)
}

// NewCredentialRejectedError is returned when the provider refuses a key at save time.
func NewCredentialRejectedError(message string) *AppError {
	return newError(ErrorTypeCredentialRejected, http.StatusUnauthorized, message, nil)
}

// NewBusyError signals an analysis already in flight on the same session.
func NewBusyError(message string) *AppError {
	return newError(ErrorTypeBusy, http.StatusConflict, message, nil)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// IsType checks if the error, or anything it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
