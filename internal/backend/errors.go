package backend

import (
	"errors"
	"fmt"
)

// DefaultErrorMessage is used when a failed response carries no message.
const DefaultErrorMessage = "Something went wrong"

// Sentinel errors.
var (
	// ErrTransport wraps failures to reach the backend at all.
	ErrTransport = errors.New("backend request failed")
	// ErrAborted is returned by typed helpers when the backend rejected the
	// credential. The session has already been cleared and the navigator
	// pointed at the login page; callers should stop without reporting.
	ErrAborted = errors.New("session invalidated")
)

// APIError is a non-2xx response other than 403.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// DecodeError reports a response whose shape does not match what the endpoint
// promises.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unexpected response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by an *APIError in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
