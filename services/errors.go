package services

import (
	"errors"
	"fmt"

	"github.com/upb/contact-directory/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound              ErrorType = "not_found"
	ErrorTypeValidation            ErrorType = "validation"
	ErrorTypeUnauthenticated       ErrorType = "unauthenticated"
	ErrorTypeInvalidCredentials    ErrorType = "invalid_credentials"
	ErrorTypeTokenInvalid          ErrorType = "token_invalid"
	ErrorTypeTokenExpired          ErrorType = "token_expired"
	ErrorTypeInsufficientPrivilege ErrorType = "insufficient_privilege"
	ErrorTypeLicenseRequired       ErrorType = "license_required"
	ErrorTypeConflict              ErrorType = "conflict"
	ErrorTypeRateLimit             ErrorType = "rate_limit"
	ErrorTypeInternal              ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail returns a copy of the error carrying an extra detail.
// The package-level sentinels are never mutated.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Type: e.Type, Message: e.Message, Err: e.Err, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrUserNotFound    = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrContactNotFound = NewDomainError(ErrorTypeNotFound, "contact not found", nil)

	// Validation Errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidRole  = NewDomainError(ErrorTypeValidation, "invalid role", nil)
	ErrInvalidID    = NewDomainError(ErrorTypeValidation, "invalid id", nil)
	ErrNoFile       = NewDomainError(ErrorTypeValidation, "no file uploaded", nil)

	// Authentication Errors
	ErrUnauthenticated    = NewDomainError(ErrorTypeUnauthenticated, "authentication required", nil)
	ErrInvalidCredentials = NewDomainError(ErrorTypeInvalidCredentials, "invalid credentials", nil)
	ErrTokenInvalid       = NewDomainError(ErrorTypeTokenInvalid, "invalid token", nil)
	ErrTokenExpired       = NewDomainError(ErrorTypeTokenExpired, "token expired", nil)

	// Authorization Errors
	ErrInsufficientPrivilege = NewDomainError(ErrorTypeInsufficientPrivilege, "insufficient privilege", nil)
	ErrLicenseRequired       = NewDomainError(ErrorTypeLicenseRequired, "a license is required to add more users", nil)

	// Conflict Errors
	ErrDuplicateEmail = NewDomainError(ErrorTypeConflict, "email already exists", nil)
	ErrLastAdmin      = NewDomainError(ErrorTypeConflict, "at least one admin account must remain", nil)

	// Rate Limit Errors
	ErrTooManyAttempts = NewDomainError(ErrorTypeRateLimit, "too many login attempts", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthenticatedError checks if the request carried no usable credentials
func IsUnauthenticatedError(err error) bool {
	t := GetErrorType(err)
	return t == ErrorTypeUnauthenticated || t == ErrorTypeInvalidCredentials
}

// IsTokenError checks if a presented token failed verification
func IsTokenError(err error) bool {
	t := GetErrorType(err)
	return t == ErrorTypeTokenInvalid || t == ErrorTypeTokenExpired
}

// IsForbiddenError checks if an error denies an authenticated caller
func IsForbiddenError(err error) bool {
	switch GetErrorType(err) {
	case ErrorTypeInsufficientPrivilege, ErrorTypeLicenseRequired, ErrorTypeTokenInvalid, ErrorTypeTokenExpired:
		return true
	}
	return false
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorMessage returns the client-facing message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// FromRepository translates repository sentinels into domain errors.
// notFound and duplicate are returned for the matching sentinel; anything else is internal.
func FromRepository(err error, notFound, duplicate *DomainError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, repositories.ErrDuplicate) && duplicate != nil:
		return duplicate
	default:
		return WrapInternal("storage operation failed", err)
	}
}
