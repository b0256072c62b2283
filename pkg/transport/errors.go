package transport

import (
	"errors"
	"fmt"
)

// HeaderRequestID is the response header carrying the request-correlation
// identifier the service issues.
const HeaderRequestID = "x-altus-request-id"

// APIError is a structured error decoded from a non-success response. It
// carries everything needed to render an actionable message: the service
// error code and text, the HTTP status, the operation, and the
// correlation id.
type APIError struct {
	Code      string
	Message   string
	Status    int
	Service   string
	Operation string
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s (HTTP %d) from %s.%s: %s", e.Code, e.Status, e.Service, e.Operation, e.Message)
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request id: %s)", e.RequestID)
	}
	return msg
}

// ConnectionError is a low-level transport failure reaching the endpoint.
type ConnectionError struct {
	Endpoint string
	Cause    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to %s: %v", e.Endpoint, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// EndpointResolutionError is a connection failure that looks like a DNS
// resolution problem, surfaced separately because the usual fix is a bad
// endpoint URL or region, not a network outage.
type EndpointResolutionError struct {
	Endpoint string
	Cause    error
}

func (e *EndpointResolutionError) Error() string {
	return fmt.Sprintf("could not resolve host for endpoint URL %q; check the endpoint and region configuration: %v", e.Endpoint, e.Cause)
}

func (e *EndpointResolutionError) Unwrap() error {
	return e.Cause
}

// ErrUnseekableBody distinguishes the retry failure mode where the
// request body stream has been consumed and cannot be rewound. Resending
// without a rewind would transmit a corrupted body.
var ErrUnseekableBody = errors.New("request body stream is not seekable, cannot rewind for retry")
