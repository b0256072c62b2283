package transport

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Decision is the outcome of one retry consultation.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// RetryPolicy decides whether an attempt should be retried. It is a pure
// function of the attempt count and the response-or-error; it holds no
// per-request mutable state.
type RetryPolicy interface {
	// ShouldRetry is consulted after every attempt with the HTTP status
	// (0 when the request never produced a response) and the transport
	// error (nil on success).
	ShouldRetry(attempt, status int, err error) Decision
}

// Statuses retried by default: throttling and transient server failures.
var defaultRetryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	509: true,
}

// Policy is the default retry policy: bounded attempts, exponential
// backoff with jitter, retrying connection errors and a fixed set of
// status codes.
type Policy struct {
	// MaxAttempts bounds the loop, first try included.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// RetryableStatuses overrides the default retryable status set.
	RetryableStatuses map[int]bool
}

// ShouldRetry implements RetryPolicy.
func (p *Policy) ShouldRetry(attempt, status int, err error) Decision {
	if attempt >= p.MaxAttempts {
		return Decision{}
	}
	if err != nil {
		if !retryableError(err) {
			return Decision{}
		}
		return Decision{Retry: true, Delay: p.delay(attempt)}
	}
	statuses := p.RetryableStatuses
	if statuses == nil {
		statuses = defaultRetryableStatuses
	}
	if statuses[status] {
		return Decision{Retry: true, Delay: p.delay(attempt)}
	}
	return Decision{}
}

// delay computes the backoff for the given attempt. A fresh backoff
// source is stepped locally so the policy itself stays stateless.
func (p *Policy) delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxElapsedTime = 0
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// retryableError reports whether a transport-level failure is worth
// retrying. Connection-level failures are; everything else (signing,
// parsing, body rewind) is fatal.
func retryableError(err error) bool {
	switch err.(type) {
	case *ConnectionError, *EndpointResolutionError:
		return true
	}
	return false
}
