package ingest

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNoToken             = errors.New("ingest: no access token configured")
	ErrUnauthorized        = errors.New("upstream: credentials rejected")
	ErrForbidden           = errors.New("upstream: access forbidden or quota exceeded")
	ErrUpstreamUnavailable = errors.New("upstream: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("upstream: request failed")
	ErrUpstreamBadResponse = errors.New("upstream: invalid response format or malformed data")
)

// APIError wraps one of the sentinels with the failed operation and the
// provider's own message.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("youtube: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}
