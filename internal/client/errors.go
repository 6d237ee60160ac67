package client

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned without any network activity once the daily
// call ceiling has been reached. It is never retried.
var ErrQuotaExceeded = errors.New("daily API quota exceeded")

// TransportError reports a request that failed on every attempt
type TransportError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}
