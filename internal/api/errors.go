package api

import "fmt"

// APIError is a non-success response from the backend. Message carries
// the server-supplied detail when the body had one, otherwise the
// status line.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// NetworkError means no response was received at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "server unreachable"
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
