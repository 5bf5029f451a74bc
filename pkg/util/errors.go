// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across packages
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrValidationFailed = errors.New("validation failed")
	ErrUnreachable      = errors.New("device unreachable")
	ErrCollectFailed    = errors.New("state collection failed")
)

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// CollectError reports a failure to obtain one view of a device's state.
// View is empty when the whole collection failed (e.g. connection refused).
type CollectError struct {
	Device string
	Source string
	View   string
	Err    error
}

func (e *CollectError) Error() string {
	if e.View == "" {
		return fmt.Sprintf("collecting state from %s via %s: %v", e.Device, e.Source, e.Err)
	}
	return fmt.Sprintf("collecting %s state from %s via %s: %v", e.View, e.Device, e.Source, e.Err)
}

// Is reports ErrCollectFailed so callers can test without unwrapping the cause.
func (e *CollectError) Is(target error) bool {
	return target == ErrCollectFailed
}

func (e *CollectError) Unwrap() error {
	return e.Err
}

// NewCollectError creates a collection error
func NewCollectError(device, source, view string, err error) *CollectError {
	return &CollectError{
		Device: device,
		Source: source,
		View:   view,
		Err:    err,
	}
}
