package domain

import (
	"errors"
	"fmt"
)

// DomainError is a meshboot error carrying a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "MB-DISC-5040")
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
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two domain errors match when their
// codes are equal.
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

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
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
// Identity Errors (META)
// ============================================================================

var (
	// ErrMetadataUnavailable indicates the task metadata endpoint could not
	// be reached or its response lacks required fields.
	ErrMetadataUnavailable = NewDomainError("MB-META-5030", "task metadata unavailable")
)

// ============================================================================
// Discovery Errors (DISC)
// ============================================================================

var (
	// ErrRegistry indicates the orchestrator task registry failed.
	// Too few running tasks is not an error.
	ErrRegistry = NewDomainError("MB-DISC-5020", "task registry error")

	// ErrDiscoveryTimeout indicates the quorum was not reached within the
	// configured maximum wait.
	ErrDiscoveryTimeout = NewDomainError("MB-DISC-5040", "peer discovery timed out")
)

// ============================================================================
// Service Descriptor Errors (SVC)
// ============================================================================

var (
	// ErrMalformedTemplate indicates the service descriptor template lacks
	// the structure the regenerator mutates.
	ErrMalformedTemplate = NewDomainError("MB-SVC-4000", "malformed service template")

	// ErrZoneUnknown indicates neither the task metadata nor the
	// configuration supplied an availability zone.
	ErrZoneUnknown = NewDomainError("MB-SVC-4001", "availability zone unknown")
)

// ============================================================================
// IO Errors (IO)
// ============================================================================

var (
	// ErrIOFailure indicates an artifact could not be written.
	ErrIOFailure = NewDomainError("MB-IO-5000", "artifact write failed")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("MB-ARG-1001", "invalid argument")

	// ErrInvalidMode indicates an unknown agent mode.
	ErrInvalidMode = NewDomainError("MB-ARG-1002", "invalid mode, want server or client")
)
