package weather

import (
	"errors"
	"fmt"
)

// RemoteServiceError is returned when a network peer answers with a non-success
// status or cannot be reached at all. In the latter case StatusCode is 0 and
// Err holds the transport error.
type RemoteServiceError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote service %s unreachable: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("remote service %s responded with status %d", e.URL, e.StatusCode)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// ResponseFormatError is returned when a response body does not have the expected shape.
type ResponseFormatError struct {
	URL string
	Err error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("unexpected response format from %s: %v", e.URL, e.Err)
}

func (e *ResponseFormatError) Unwrap() error { return e.Err }

// UnknownCodeError means the upstream API sent a code outside the closed vocabulary.
type UnknownCodeError struct {
	Kind string
	Code int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown %s code %d", e.Kind, e.Code)
}

// PersistenceError wraps a failed local durable write.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsContractBreak reports whether err signals the upstream API violating its
// documented code set. Such failures are logged at a higher severity.
func IsContractBreak(err error) bool {
	var uc *UnknownCodeError
	return errors.As(err, &uc)
}
