package client

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBaseURL is returned when the service base URL cannot be used.
	ErrInvalidBaseURL = errors.New("fdsn: invalid base URL")
	// ErrNoData is returned when the service answers 204 No Content, i.e.
	// nothing matched the request.
	ErrNoData = errors.New("fdsn: no data available for request")
)

// APIError is a non-success answer from an FDSN service. Detail holds the
// plain-text error document the service sent, if any.
type APIError struct {
	Status int
	URL    string
	Detail string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Detail == "" {
		return fmt.Sprintf("fdsn: unexpected status %d for %s", e.Status, e.URL)
	}
	return fmt.Sprintf("fdsn: status %d: %s", e.Status, e.Detail)
}
