// Package domain defines domain-specific errors.
// These errors describe pipeline failures independent of the backend that produced them.
package domain

import (
	"errors"
	"fmt"
)

// Common errors returned by the pipeline.
var (
	// ErrCaptureUnavailable is returned when the capture device cannot be opened
	// (permission denied, no device, backend failure). It is recoverable.
	ErrCaptureUnavailable = errors.New("capture device unavailable")

	// ErrNotInitialized is returned when an operation needs an initialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrDisposed is returned when a disposed component is initialized again.
	ErrDisposed = errors.New("component disposed")

	// ErrUnsupportedStyle is returned for an unknown visualization style key.
	ErrUnsupportedStyle = errors.New("unsupported visualization style")

	// ErrSurfaceEmpty is returned when the drawing surface has no area.
	ErrSurfaceEmpty = errors.New("surface has zero size")

	// ErrNoPreference is returned when a preference was never saved.
	ErrNoPreference = errors.New("preference not saved")

	// ErrSchedulerClosed is returned when a frame is requested from a closed scheduler.
	ErrSchedulerClosed = errors.New("scheduler closed")
)

// CaptureError represents a failure of a capture backend.
type CaptureError struct {
	Op      string // Operation that failed (e.g., "open", "start", "read")
	Source  string // Capture source name (e.g., "malgo", "file", "synthetic")
	Message string // Error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture %s.%s failed: %s: %v", e.Source, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("capture %s.%s failed: %s", e.Source, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Is makes every CaptureError match ErrCaptureUnavailable.
func (e *CaptureError) Is(target error) bool {
	return target == ErrCaptureUnavailable
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(op, source, message string, err error) *CaptureError {
	return &CaptureError{
		Op:      op,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// RenderError represents a failure inside a single frame's render call.
type RenderError struct {
	Style Style       // Active style
	State VisualState // Target state at the time of the failure
	Panic any         // Recovered panic value (nil for returned errors)
	Err   error       // Returned error (nil for panics)
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("render %s/%s panicked: %v", e.Style, e.State, e.Panic)
	}
	return fmt.Sprintf("render %s/%s failed: %v", e.Style, e.State, e.Err)
}

// Unwrap returns the underlying error.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
