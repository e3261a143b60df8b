package dstack

import "fmt"

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.Code)
}

// ConnectionError reports a network-level failure (refused, timeout, DNS,
// or a body read that broke mid-stream).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("Connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DecodeError reports a 2xx body that did not parse as an inventory.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("Parse error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RequestError reports a failure to build the outbound request. Unreachable
// with validated configuration, kept as its own category anyway.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("Request error: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
