package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Admission
	ErrCodeInvalidOffice      ErrorCode = "INVALID_OFFICE"
	ErrCodeInvalidService     ErrorCode = "INVALID_SERVICE"
	ErrCodeDateInPast         ErrorCode = "DATE_IN_PAST"
	ErrCodeDateTooFarAhead    ErrorCode = "DATE_TOO_FAR_AHEAD"
	ErrCodeSlotUnavailable    ErrorCode = "SLOT_UNAVAILABLE"
	ErrCodeCapacityExceeded   ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeReferenceExhausted ErrorCode = "REFERENCE_EXHAUSTED"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInvalidTransition ErrorCode = "INVALID_STATUS_TRANSITION"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func InvalidTransition(from, to string) *AppError {
	return New(ErrCodeInvalidTransition, fmt.Sprintf("Cannot change booking status from %s to %s", from, to))
}

// Admission rejections

func InvalidOffice(message string) *AppError {
	return New(ErrCodeInvalidOffice, message)
}

func InvalidService(message string) *AppError {
	return New(ErrCodeInvalidService, message)
}

func DateInPast() *AppError {
	return New(ErrCodeDateInPast, "Appointment date cannot be in the past")
}

func DateTooFarAhead(maxDays int) *AppError {
	return New(ErrCodeDateTooFarAhead, fmt.Sprintf("Appointments can only be booked up to %d days in advance", maxDays))
}

func SlotUnavailable() *AppError {
	return New(ErrCodeSlotUnavailable, "Selected time slot is not available")
}

func CapacityExceeded() *AppError {
	return New(ErrCodeCapacityExceeded, "Office has reached capacity for selected date")
}

func ReferenceExhausted() *AppError {
	return New(ErrCodeReferenceExhausted, "Could not allocate a unique booking reference")
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsAdmissionRejection reports whether err is one of the booking admission
// rejections, as opposed to an infrastructure fault.
func IsAdmissionRejection(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidOffice, ErrCodeInvalidService, ErrCodeDateInPast,
		ErrCodeDateTooFarAhead, ErrCodeSlotUnavailable, ErrCodeCapacityExceeded:
		return true
	}
	return false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
