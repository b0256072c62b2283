// Package paginate drives a paginated operation across pages, using the
// pagination binding derived from the operation's shape annotations. A
// pager is a lazy, single-pass sequence: each page is fetched when the
// consumer asks for it, and re-iterating means starting a new pager.
package paginate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloudera/cdpcore/pkg/model"
	"github.com/cloudera/cdpcore/pkg/shape"
)

// Error codes. Pagination failures indicate a broken server/client
// contract and are never retried.
const (
	ErrCodeNotPageable = "PAGINATION_NOT_PAGEABLE"
	ErrCodeStuckToken  = "PAGINATION_STUCK_TOKEN"
	ErrCodeOvershoot   = "PAGINATION_OVERSHOOT"
	ErrCodeUnsupported = "PAGINATION_UNSUPPORTED_RESULT"
	ErrCodeExhausted   = "PAGINATION_EXHAUSTED"
)

// Error is a pagination contract violation.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on error code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrStuckToken = &Error{Code: ErrCodeStuckToken, Message: "server returned the same continuation token twice"}
	ErrOvershoot  = &Error{Code: ErrCodeOvershoot, Message: "server returned more items than the requested maximum"}
)

// Invoker performs one operation call with a native argument tree. The
// client package implements it; tests substitute fakes.
type Invoker interface {
	Invoke(ctx context.Context, op *model.Operation, args map[string]any) (any, error)
}

// Options tunes one pagination run.
type Options struct {
	// MaxItems caps the total items across pages. Zero means the
	// operation's declared default.
	MaxItems int

	// PageSize requests a per-page item count. Zero lets the pager
	// negotiate from MaxItems and the page-size bound.
	PageSize int

	// StartingToken resumes from a continuation token surfaced by an
	// earlier run.
	StartingToken string
}

// Pager iterates the pages of one paginated operation call.
type Pager struct {
	invoker Invoker
	op      *model.Operation
	paging  *model.Paging
	args    map[string]any
	opts    Options
	logger  *zap.Logger

	token    string
	maxItems int
	total    int
	pages    int
	done     bool

	// nextToken is the continuation surfaced when the run stops at the
	// item cap with more pages available.
	nextToken string
}

// New creates a pager over an operation. The operation must carry a
// complete pagination binding.
func New(invoker Invoker, op *model.Operation, args map[string]any, opts Options, logger *zap.Logger) (*Pager, error) {
	paging, err := op.Paging()
	if err != nil {
		return nil, err
	}
	if !paging.Supported() {
		return nil, &Error{Code: ErrCodeNotPageable, Message: fmt.Sprintf("operation %s is not pageable", op.Name)}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = paging.DefaultMaxItems
	}
	return &Pager{
		invoker:  invoker,
		op:       op,
		paging:   paging,
		args:     args,
		opts:     opts,
		logger:   logger,
		token:    opts.StartingToken,
		maxItems: maxItems,
	}, nil
}

// HasMorePages reports whether NextPage can fetch another page.
func (p *Pager) HasMorePages() bool {
	return !p.done
}

// NextToken returns the continuation token to resume from, or "" when the
// result set was fully drained.
func (p *Pager) NextToken() string {
	return p.nextToken
}

// NextPage fetches one page and advances the run. Invariants are checked
// after every fetch: a repeated continuation token and an item-count
// overshoot both fail the run.
func (p *Pager) NextPage(ctx context.Context) (map[string]any, error) {
	if p.done {
		return nil, &Error{Code: ErrCodeExhausted, Message: "no more pages; start a new pagination run to re-iterate"}
	}

	args := make(map[string]any, len(p.args)+2)
	for k, v := range p.args {
		args[k] = v
	}
	if p.token != "" {
		args[p.paging.InputToken] = p.token
	}
	if p.paging.PageSize != "" {
		args[p.paging.PageSize] = p.pageSize()
	}

	resp, err := p.invoker.Invoke(ctx, p.op, args)
	if err != nil {
		p.fail()
		return nil, err
	}
	page, ok := resp.(map[string]any)
	if !ok {
		p.fail()
		return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("operation %s returned a non-object page", p.op.Name)}
	}

	// A page without the result member carries zero items.
	count := 0
	if items, ok := page[p.paging.Result].([]any); ok {
		count = len(items)
	}
	p.total += count
	p.pages++

	newToken, _ := page[p.paging.OutputToken].(string)
	p.logger.Debug("fetched page",
		zap.String("operation", p.op.Name),
		zap.Int("page", p.pages),
		zap.Int("items", count),
		zap.Int("total", p.total),
		zap.Bool("more", newToken != ""))

	if newToken != "" && newToken == p.token {
		p.fail()
		return nil, ErrStuckToken
	}
	if p.total > p.maxItems {
		p.fail()
		return nil, ErrOvershoot
	}

	switch {
	case newToken == "":
		p.done = true
		p.nextToken = ""
	case p.total == p.maxItems:
		p.done = true
		p.nextToken = newToken
	default:
		p.token = newToken
	}
	return page, nil
}

// pageSize negotiates the next fetch's page size: the requested size (or
// the item cap), bounded by the page-size member's declared maximum and
// by the items still needed.
func (p *Pager) pageSize() int {
	size := p.opts.PageSize
	if size <= 0 {
		size = p.maxItems
	}
	if input, err := p.op.InputShape(); err == nil && input != nil {
		if member, ok := input.MemberShape(p.paging.PageSize); ok {
			if max := member.Annotations.Maximum; max != nil && size > int(*max) {
				size = int(*max)
			}
		}
	}
	if remaining := p.maxItems - p.total; size > remaining {
		size = remaining
	}
	return size
}

// fail terminates the run; a failed pager never fetches again.
func (p *Pager) fail() {
	p.done = true
}

// BuildFullResult drains the sequence and aggregates the result member
// across pages: lists concatenate; numeric and string results reduce by
// summation and concatenation (a legacy rule for a few non-list paginated
// fields); anything else is unsupported. When the run stopped at the item
// cap, the surfaced continuation token is included under the output-token
// member name.
func (p *Pager) BuildFullResult(ctx context.Context) (map[string]any, error) {
	resultShape, err := p.resultShape()
	if err != nil {
		return nil, err
	}

	var aggregated any
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		// A missing or null result member is a zero-item page, same as
		// the per-page count in NextPage.
		raw, present := page[p.paging.Result]
		if !present || raw == nil {
			continue
		}
		aggregated, err = reduce(aggregated, raw, resultShape)
		if err != nil {
			p.fail()
			return nil, err
		}
	}

	full := map[string]any{}
	if aggregated != nil {
		full[p.paging.Result] = aggregated
	}
	if p.nextToken != "" {
		full[p.paging.OutputToken] = p.nextToken
	}
	return full, nil
}

func (p *Pager) resultShape() (*shape.Shape, error) {
	output, err := p.op.OutputShape()
	if err != nil {
		return nil, err
	}
	if output == nil {
		return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("operation %s declares no output", p.op.Name)}
	}
	s, ok := output.MemberShape(p.paging.Result)
	if !ok {
		return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("output of %s has no member %q", p.op.Name, p.paging.Result)}
	}
	return s, nil
}

func reduce(acc, raw any, s *shape.Shape) (any, error) {
	switch s.Kind {
	case shape.KindArray:
		items, ok := raw.([]any)
		if !ok {
			return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("result member is not a list: %T", raw)}
		}
		if acc == nil {
			acc = []any{}
		}
		return append(acc.([]any), items...), nil
	case shape.KindInteger, shape.KindLong:
		n, ok := toInt64(raw)
		if !ok {
			return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("result member is not an integer: %T", raw)}
		}
		if acc == nil {
			return n, nil
		}
		return acc.(int64) + n, nil
	case shape.KindFloat, shape.KindDouble:
		n, ok := toFloat64(raw)
		if !ok {
			return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("result member is not a number: %T", raw)}
		}
		if acc == nil {
			return n, nil
		}
		return acc.(float64) + n, nil
	case shape.KindString:
		text, ok := raw.(string)
		if !ok {
			return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("result member is not a string: %T", raw)}
		}
		if acc == nil {
			return text, nil
		}
		return acc.(string) + text, nil
	default:
		return nil, &Error{Code: ErrCodeUnsupported, Message: fmt.Sprintf("no reduction rule for result kind %s", s.Kind)}
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
