// Package domain defines the core domain models for the contact service.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes follow the CF-<AREA>-<STATUS><n> layout; the status digits drive
// the HTTP mapping in the handler package.
type DomainError struct {
	Code    string // Error code (e.g., "CF-VAL-4000")
	Message string // User-facing message
	Details string // Optional additional details (never sent to clients)
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support by comparing codes.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithMessage returns a copy of the error with a different user message.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
		Details: e.Details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Configuration Errors (CFG)
// ============================================================================

var (
	// ErrConfigurationMissing indicates required configuration is absent.
	// The message is deliberately bland.
	ErrConfigurationMissing = NewDomainError("CF-CFG-5000", "Configuration error")
)

// ============================================================================
// Request Errors (REQ)
// ============================================================================

var (
	// ErrMethodNotAllowed indicates the HTTP method is not accepted.
	ErrMethodNotAllowed = NewDomainError("CF-REQ-4050", "Method not allowed")

	// ErrPayloadTooLarge indicates the request body exceeded the size cap.
	ErrPayloadTooLarge = NewDomainError("CF-REQ-4001", "Request too large")

	// ErrPayloadMalformed indicates the request body is not valid JSON.
	ErrPayloadMalformed = NewDomainError("CF-REQ-4002", "Invalid data format")
)

// ============================================================================
// Security Errors (SEC)
// ============================================================================

var (
	// ErrSecurityCheckFailed indicates an anti-abuse stage rejected the request.
	ErrSecurityCheckFailed = NewDomainError("CF-SEC-4000", "Security validation failed")

	// ErrAccessDenied indicates the client IP is denied by policy.
	ErrAccessDenied = NewDomainError("CF-SEC-4030", "Access denied")
)

// ============================================================================
// Validation Errors (VAL)
// ============================================================================

var (
	// ErrValidationFailed indicates a submitted field failed validation.
	ErrValidationFailed = NewDomainError("CF-VAL-4000", "validation failed")
)

// ============================================================================
// Rate Limit Errors (RATE)
// ============================================================================

var (
	// ErrRateLimited indicates the submission window is exhausted.
	ErrRateLimited = NewDomainError("CF-RATE-4290", "送信回数の上限に達しました。しばらく時間をおいてから再度お試しください。")
)

// ============================================================================
// Mail Errors (MAIL)
// ============================================================================

var (
	// ErrDispatchFailed indicates the admin notification could not be sent.
	ErrDispatchFailed = NewDomainError("CF-MAIL-5000", "メール送信に失敗しました。時間をおいて再度お試しください。")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("CF-SYS-5000", "internal server error")

	// ErrStorageError indicates a session store failure.
	ErrStorageError = NewDomainError("CF-SYS-5001", "storage error")

	// ErrEntropy indicates the random source failed.
	ErrEntropy = NewDomainError("CF-SYS-5002", "Token generation failed")
)
