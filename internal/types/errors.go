// Package types provides shared types and errors for the application.
package types

import "errors"

// Sentinel errors for consistent error handling across the application.
// These errors can be checked with errors.Is() for type-safe error handling.
var (
	// Browser pool errors
	ErrBrowserPoolClosed  = errors.New("browser pool is closed")
	ErrBrowserPoolTimeout = errors.New("timeout waiting for browser from pool")
	ErrBrowserUnhealthy   = errors.New("browser is unhealthy")

	// Page session errors
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrTooManySessions      = errors.New("maximum number of sessions reached")
	ErrSessionPageNil       = errors.New("session page is nil or has been closed")

	// Scroll container errors
	ErrContainerNotFound = errors.New("scroll container not found")

	// Request errors
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidURL      = errors.New("invalid URL")
	ErrInvalidCommand  = errors.New("invalid command")
	ErrURLRequired     = errors.New("url is required")
	ErrSessionRequired = errors.New("session is required")

	// Lifecycle errors
	ErrShuttingDown = errors.New("server is shutting down")
)

// PoolError provides detailed information about browser pool failures.
type PoolError struct {
	Operation string // The operation that failed
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *PoolError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PoolError) Unwrap() error {
	return e.Err
}

// NewPoolAcquireError creates an error for pool acquire failures.
func NewPoolAcquireError(reason string, err error) *PoolError {
	return &PoolError{
		Operation: "acquire",
		Message:   "Failed to acquire browser from pool: " + reason,
		Err:       err,
	}
}

// ContainerError reports a selector that does not resolve to a scrollable element.
type ContainerError struct {
	Selector string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ContainerError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ContainerError) Unwrap() error {
	return e.Err
}

// NewContainerNotFoundError creates an error for a selector with no match.
func NewContainerNotFoundError(selector string) *ContainerError {
	return &ContainerError{
		Selector: selector,
		Message:  "No element matches selector " + selector,
		Err:      ErrContainerNotFound,
	}
}
