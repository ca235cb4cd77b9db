package client

import "fmt"

// TransportError means the panel could not be reached: connection refused,
// TLS failure, timeout or a truncated response.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("API request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is an HTTP status >= 400 from the panel. Message comes from the
// body's "message" or "error" field, else the raw body.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }
