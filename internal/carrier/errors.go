package carrier

import (
	"errors"
	"fmt"
)

// AuthenticationError is returned when the carrier rejects the configured credentials.
type AuthenticationError struct {
	Cause error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Shiprocket Authentication Failed: %v", e.Cause)
	}
	return "Shiprocket Authentication Failed"
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// APIError describes a failed carrier API call.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsAuthenticationError reports whether err is, or wraps, an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// Message returns the carrier-facing text of err. Authentication failures keep their full text;
// other API errors are reduced to the carrier's message.
func Message(err error) string {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
