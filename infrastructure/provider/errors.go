// Package provider holds the model-backed classifiers: local hugot pipelines
// for sentiment and part-of-speech tagging, and an OpenAI-compatible chat
// endpoint for sentiment.
package provider

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable indicates no model files could be found.
var ErrModelUnavailable = errors.New("provider: model unavailable")

// ProviderError wraps provider errors with additional context.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a new ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
		cause:      cause,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.operation, e.message)
	if e.cause != nil && e.cause.Error() != e.message {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.cause }

// Operation returns the operation that failed.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status, zero when none was received.
func (e *ProviderError) StatusCode() int { return e.statusCode }
