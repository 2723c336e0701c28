package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeInvalidConfig       ErrorType = "invalid_config"
	ErrorTypeNoProvider          ErrorType = "no_provider_available"
	ErrorTypeProviderUnavailable ErrorType = "provider_unavailable"
	ErrorTypeRateLimited         ErrorType = "rate_limited"
	ErrorTypeTimeout             ErrorType = "timeout"
	ErrorTypeTransientNetwork    ErrorType = "transient_network"
	ErrorTypeAuthentication      ErrorType = "authentication"
	ErrorTypeMalformedRequest    ErrorType = "malformed_request"
	ErrorTypeBudgetExceeded      ErrorType = "budget_exceeded"
	ErrorTypeAllProvidersFailed  ErrorType = "all_providers_failed"
	ErrorTypeInternal            ErrorType = "internal"
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

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
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
	// Configuration errors, fatal at registration time
	ErrInvalidConfig = NewDomainError(ErrorTypeInvalidConfig, "invalid provider configuration", nil)

	// Routing errors
	ErrNoProviderAvailable = NewDomainError(ErrorTypeNoProvider, "no provider available", nil)
	ErrProviderUnavailable = NewDomainError(ErrorTypeProviderUnavailable, "requested provider unavailable", nil)
	ErrBudgetExceeded      = NewDomainError(ErrorTypeBudgetExceeded, "budget exceeded", nil)

	// Per-attempt errors
	ErrRateLimited      = NewDomainError(ErrorTypeRateLimited, "provider rate limited", nil)
	ErrTimeout          = NewDomainError(ErrorTypeTimeout, "attempt timed out", nil)
	ErrTransientNetwork = NewDomainError(ErrorTypeTransientNetwork, "transient network error", nil)
	ErrAuthentication   = NewDomainError(ErrorTypeAuthentication, "authentication failed", nil)
	ErrMalformedRequest = NewDomainError(ErrorTypeMalformedRequest, "malformed request", nil)

	// Terminal error after candidate exhaustion
	ErrAllProvidersFailed = NewDomainError(ErrorTypeAllProvidersFailed, "all providers failed", nil)
)

// TypeOf returns the DomainError type of err, or ErrorTypeInternal when err
// is not a DomainError.
func TypeOf(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal
}
