// Package domain defines the core domain models for SessBox.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form SB-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "SB-SESS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += " (" + e.Cause.Error() + ")"
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
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

// WithDetailsf is WithDetails with a format string.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
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
// Session Errors (SESS)
// ============================================================================

var (
	// ErrNotFound indicates a mutation or lookup targeted a record absent
	// from the local cache.
	ErrNotFound = NewDomainError("SB-SESS-4040", "session not found")

	// ErrValidation indicates session data validation failed.
	ErrValidation = NewDomainError("SB-SESS-4001", "session validation failed")

	// ErrDomainBlocked indicates the session domain is on the blocklist.
	ErrDomainBlocked = NewDomainError("SB-SESS-4030", "domain is blocked")
)

// ============================================================================
// Remote Errors (NET / AUTH / SRV)
// ============================================================================

var (
	// ErrNetworkUnavailable is a transient failure reaching the remote store.
	// It drives enqueue-for-later rather than propagation.
	ErrNetworkUnavailable = NewDomainError("SB-NET-5030", "remote store unreachable")

	// ErrAuthenticationRequired indicates the remote store rejected the
	// credential (401). Retrying is pointless until re-authentication.
	ErrAuthenticationRequired = NewDomainError("SB-AUTH-4010", "authentication required")

	// ErrServerRejected indicates a permanent 4xx rejection (other than 401/404).
	ErrServerRejected = NewDomainError("SB-SRV-4000", "request rejected by server")
)

// ============================================================================
// System Errors (SYS / ARG)
// ============================================================================

var (
	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("SB-SYS-5000", "internal error")

	// ErrStorage indicates a key-value store failure.
	ErrStorage = NewDomainError("SB-SYS-5001", "storage error")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SB-ARG-1001", "invalid argument")
)

// IsTransient reports whether err should be retried later without
// counting against the operation's rejection budget.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}
