package paymarket

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("paymarket: not found")
	ErrInvalidInput = errors.New("paymarket: invalid input")

	// Access control errors
	ErrUnauthorized   = errors.New("paymarket: caller is not the administrator")
	ErrInvalidAddress = errors.New("paymarket: zero address")

	// Pause gate errors
	ErrContractPaused = errors.New("paymarket: paused")
	ErrNotPaused      = errors.New("paymarket: not paused")

	// Settlement errors
	ErrZeroAmount          = errors.New("paymarket: amount must be greater than zero")
	ErrUnknownVendor       = errors.New("paymarket: unknown vendor")
	ErrTokenNotWhitelisted = errors.New("paymarket: token not whitelisted")
	ErrTransferFailed      = errors.New("paymarket: transfer failed")
	ErrReentrantCall       = errors.New("paymarket: reentrant call")

	// Fee errors
	ErrInvalidFeeRate = errors.New("paymarket: fee basis points exceed 10000")

	// Store errors
	ErrNotInitialized = errors.New("paymarket: market not initialized")
	ErrStateNotFound  = errors.New("paymarket: state not found")
	ErrVendorNotFound = errors.New("paymarket: vendor not found")
	ErrStoreClosed    = errors.New("paymarket: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("paymarket: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "paymarket: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("paymarket: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStateNotFound) ||
		errors.Is(err, ErrVendorNotFound)
}

// IsRejection reports whether err is a policy rejection of a settlement:
// the caller's request was well formed but the market refused it.
func IsRejection(err error) bool {
	return errors.Is(err, ErrContractPaused) ||
		errors.Is(err, ErrZeroAmount) ||
		errors.Is(err, ErrUnknownVendor) ||
		errors.Is(err, ErrTokenNotWhitelisted) ||
		errors.Is(err, ErrTransferFailed)
}

// IsRetryable returns true if the error is temporary and the same call may
// succeed later without any change by the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContractPaused) ||
		errors.Is(err, ErrReentrantCall)
}
