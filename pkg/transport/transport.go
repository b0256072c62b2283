// Package transport owns the HTTP connection to a resolved endpoint: it
// signs and sends requests, decodes responses and error envelopes, and
// drives the retry loop.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cloudera/cdpcore/pkg/auth"
	"github.com/cloudera/cdpcore/pkg/codec"
	"github.com/cloudera/cdpcore/pkg/config"
	"github.com/cloudera/cdpcore/pkg/model"
)

// expectContinueThreshold is the body size above which the request
// declares Expect: 100-continue, letting the server reject it before the
// body is transmitted. The negotiation itself (flush headers, poll for up
// to one second, fall back to sending the body) is performed by
// http.Transport via ExpectContinueTimeout.
const expectContinueThreshold = 1 << 20

// errorStatusThreshold: any status at or above this surfaces as an
// APIError.
const errorStatusThreshold = 300

// ResponseMetadata describes the HTTP half of a response, separate from
// the parsed body.
type ResponseMetadata struct {
	Status    int
	RequestID string
	Headers   http.Header
}

// Endpoint is a reusable connection to one base URL. The underlying
// http.Client pools connections across retries and pages. The mutex
// exists for hosts that embed the engine in a multi-threaded caller;
// nothing in the core itself calls concurrently.
type Endpoint struct {
	BaseURL string
	Service string

	client *http.Client
	policy RetryPolicy
	logger *zap.Logger

	mu sync.Mutex
}

// New creates an Endpoint for a resolved base URL.
func New(baseURL, service string, cfg *config.Config, logger *zap.Logger) *Endpoint {
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.Normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Endpoint{
		BaseURL: baseURL,
		Service: service,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
			Transport: &http.Transport{
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		policy: &Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
		},
		logger: logger,
	}
}

// WithPolicy replaces the retry policy.
func (e *Endpoint) WithPolicy(p RetryPolicy) *Endpoint {
	e.policy = p
	return e
}

// MakeRequest signs and sends one operation request, retrying per policy,
// and returns the response metadata and parsed native body. Each retry
// attempt is re-signed with a fresh date and rewinds any streaming body.
func (e *Endpoint) MakeRequest(ctx context.Context, op *model.Operation, req *codec.Request, signer *auth.Signer) (*ResponseMetadata, any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for attempt := 1; ; attempt++ {
		meta, body, err := e.attempt(ctx, op, req, signer, attempt)
		if err != nil {
			var fatal *fatalError
			if errors.As(err, &fatal) {
				return meta, nil, fatal.cause
			}
		}

		status := 0
		if meta != nil {
			status = meta.Status
		}
		decision := e.policy.ShouldRetry(attempt, status, err)
		if !decision.Retry {
			if err != nil {
				return meta, nil, err
			}
			return e.finish(op, meta, body)
		}

		e.logger.Warn("retrying request",
			zap.String("operation", op.Name),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Duration("delay", decision.Delay),
			zap.Error(err))

		if rewindErr := rewind(req); rewindErr != nil {
			return meta, nil, rewindErr
		}
		select {
		case <-ctx.Done():
			return meta, nil, ctx.Err()
		case <-time.After(decision.Delay):
		}
	}
}

// fatalError marks failures the retry loop must not see as retryable
// (signing errors, request construction).
type fatalError struct {
	cause error
}

func (f *fatalError) Error() string { return f.cause.Error() }

func (e *Endpoint) attempt(ctx context.Context, op *model.Operation, req *codec.Request, signer *auth.Signer, attempt int) (*ResponseMetadata, []byte, error) {
	// Sign a fresh copy each attempt: the signer rejects pre-set date
	// and auth headers, and every attempt must carry a new signature.
	signed := &codec.Request{
		Method:  req.Method,
		Path:    req.Path,
		Headers: make(map[string]string, len(req.Headers)+2),
		Body:    req.Body,
		Stream:  req.Stream,
	}
	for k, v := range req.Headers {
		signed.Headers[k] = v
	}
	if err := signer.Sign(signed); err != nil {
		return nil, nil, &fatalError{cause: err}
	}

	httpReq, err := e.buildHTTPRequest(ctx, signed)
	if err != nil {
		return nil, nil, &fatalError{cause: err}
	}

	e.logger.Debug("sending request",
		zap.String("operation", op.Name),
		zap.String("method", httpReq.Method),
		zap.String("url", httpReq.URL.String()),
		zap.Int("attempt", attempt))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, nil, e.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &ConnectionError{Endpoint: e.BaseURL, Cause: err}
	}

	meta := &ResponseMetadata{
		Status:    resp.StatusCode,
		RequestID: resp.Header.Get(HeaderRequestID),
		Headers:   resp.Header,
	}
	return meta, body, nil
}

func (e *Endpoint) buildHTTPRequest(ctx context.Context, signed *codec.Request) (*http.Request, error) {
	var body io.Reader
	size := len(signed.Body)
	if signed.Stream != nil {
		body = signed.Stream
		size = expectContinueThreshold // unknown length, negotiate
	} else if len(signed.Body) > 0 {
		body = bytes.NewReader(signed.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, signed.Method, e.BaseURL+signed.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range signed.Headers {
		httpReq.Header.Set(k, v)
	}
	if size >= expectContinueThreshold {
		httpReq.Header.Set("Expect", "100-continue")
	}
	return httpReq, nil
}

// finish converts a completed exchange into the caller-facing result:
// an APIError for non-success statuses, otherwise the parsed native tree.
func (e *Endpoint) finish(op *model.Operation, meta *ResponseMetadata, body []byte) (*ResponseMetadata, any, error) {
	if meta.Status >= errorStatusThreshold {
		env := codec.ParseErrorEnvelope(body)
		return meta, nil, &APIError{
			Code:      env.Code,
			Message:   env.Message,
			Status:    meta.Status,
			Service:   e.Service,
			Operation: op.Name,
			RequestID: meta.RequestID,
		}
	}

	output, err := op.OutputShape()
	if err != nil {
		return meta, nil, err
	}
	parsed, err := codec.Parse(meta.Status, body, output)
	if err != nil {
		return meta, nil, err
	}
	return meta, parsed, nil
}

// classify translates low-level send failures. DNS resolution failures
// get their own error naming the endpoint URL; everything else is a
// plain connection error.
func (e *Endpoint) classify(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &EndpointResolutionError{Endpoint: e.BaseURL, Cause: err}
	}
	return &ConnectionError{Endpoint: e.BaseURL, Cause: err}
}

// rewind prepares the request body for a retry. Byte bodies rebuild for
// free; streams must be seekable or the retry fails outright.
func rewind(req *codec.Request) error {
	if req.Stream == nil {
		return nil
	}
	seeker, ok := req.Stream.(io.Seeker)
	if !ok {
		return ErrUnseekableBody
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind request body: %w", err)
	}
	return nil
}
