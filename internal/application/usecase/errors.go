package usecase

import "errors"

var (
	// ErrBrowserNotConfigured is returned when the browser engine binding is
	// absent. This is a configuration error: no browser session is started.
	ErrBrowserNotConfigured = errors.New("browser engine is not configured")

	// ErrCacheNotConfigured is returned when the artifact cache binding is
	// absent. Also a configuration error, detected before any capture work.
	ErrCacheNotConfigured = errors.New("artifact cache is not configured")
)

// ValidationError marks a request the caller got wrong: missing or malformed
// fields, rejected before any resource is acquired. Handlers map it to a 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(message string) error {
	return &ValidationError{Message: message}
}
