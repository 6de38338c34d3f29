package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrAPI is matched by every APIError.
var ErrAPI = errors.New("api error")

// APIError represents a non-2xx response from a remote API
type APIError struct {
	Service    string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("%s API error: %s %s returned %d: %s", e.Service, e.Method, e.URL, e.StatusCode, body)
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// Temporary reports whether repeating the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable classifies errors returned by Client.Do. Transport failures
// and temporary API errors are retryable; everything else is permanent.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var decodeErr *DecodeError
	return !errors.As(err, &decodeErr)
}

// DecodeError wraps a response body that could not be decoded.
type DecodeError struct {
	Service string
	URL     string
	Err     error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode response from %s: %v", e.Service, e.URL, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *DecodeError) Unwrap() error {
	return e.Err
}
