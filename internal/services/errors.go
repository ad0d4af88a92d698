package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is the single login failure: unknown email, wrong
	// password and deactivated account all produce it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts is returned when the login throttle rejects an attempt.
	ErrTooManyAttempts = errors.New("too many login attempts")
	// ErrNotPermitted is returned when the caller does not own the resource.
	ErrNotPermitted = errors.New("not permitted")
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries a client-facing message for a rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ThrottleError is a rejected login attempt. RetryAfter is how long the
// caller must wait before the throttle window closes.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return ErrTooManyAttempts.Error()
}

func (e *ThrottleError) Unwrap() error {
	return ErrTooManyAttempts
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
