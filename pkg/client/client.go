// Package client composes the engine: it validates a native argument
// tree, serializes it, sends it through a transport endpoint, and returns
// the parsed native response. This is the surface the CLI layer calls.
package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloudera/cdpcore/pkg/auth"
	"github.com/cloudera/cdpcore/pkg/codec"
	"github.com/cloudera/cdpcore/pkg/model"
	"github.com/cloudera/cdpcore/pkg/paginate"
	"github.com/cloudera/cdpcore/pkg/transport"
	"github.com/cloudera/cdpcore/pkg/validate"
)

// ValidationError carries the aggregated validation report for an
// invocation rejected before any network call.
type ValidationError struct {
	Report *validate.Report
}

func (e *ValidationError) Error() string {
	return e.Report.Render()
}

// Client binds a loaded service to an endpoint and signing credentials.
type Client struct {
	service  *model.Service
	endpoint *transport.Endpoint
	signer   *auth.Signer
	logger   *zap.Logger
}

// New creates a client for one service.
func New(service *model.Service, endpoint *transport.Endpoint, signer *auth.Signer, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		service:  service,
		endpoint: endpoint,
		signer:   signer,
		logger:   logger,
	}
}

// Service returns the bound service model.
func (c *Client) Service() *model.Service {
	return c.service
}

// Invoke performs one operation call: validate, serialize, send, parse.
// Validation failures are fatal and reported in full before anything is
// sent. Invoke implements paginate.Invoker, so paginated operations run
// through the same path.
func (c *Client) Invoke(ctx context.Context, op *model.Operation, args map[string]any) (any, error) {
	input, err := op.InputShape()
	if err != nil {
		return nil, err
	}
	if input != nil {
		if report := validate.Validate(args, input); !report.Empty() {
			c.logger.Debug("rejecting invocation",
				zap.String("operation", op.Name),
				zap.Int("issues", len(report.Issues())))
			return nil, &ValidationError{Report: report}
		}
	}

	req, err := codec.Serialize(normalize(args), op)
	if err != nil {
		return nil, err
	}

	_, body, err := c.endpoint.MakeRequest(ctx, op, req, c.signer)
	return body, err
}

// Paginate starts a pagination run over a pageable operation bound to
// this client.
func (c *Client) Paginate(opName string, args map[string]any, opts paginate.Options) (*paginate.Pager, error) {
	op, err := c.service.Operation(opName)
	if err != nil {
		return nil, err
	}
	return paginate.New(c, op, args, opts, c.logger)
}

// normalize gives the serializer a non-nil tree for operations invoked
// with no arguments.
func normalize(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	return args
}
