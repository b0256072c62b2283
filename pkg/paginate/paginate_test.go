package paginate

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudera/cdpcore/pkg/model"
)

const listDoc = `
x-endpoint-name: things
paths:
  /things/listThings:
    post:
      operationId: listThings
      parameters:
        - name: input
          schema:
            $ref: '#/definitions/ListRequest'
      responses:
        '200':
          schema:
            $ref: '#/definitions/ListResponse'
  /things/countThings:
    post:
      operationId: countThings
      parameters:
        - name: input
          schema:
            $ref: '#/definitions/ListRequest'
      responses:
        '200':
          schema:
            $ref: '#/definitions/CountResponse'
  /things/checkThings:
    post:
      operationId: checkThings
      parameters:
        - name: input
          schema:
            $ref: '#/definitions/ListRequest'
      responses:
        '200':
          schema:
            $ref: '#/definitions/CheckResponse'
  /things/createThing:
    post:
      operationId: createThing
definitions:
  ListRequest:
    type: object
    properties:
      startingToken:
        type: string
        x-paging-input-token: true
      pageSize:
        type: integer
        maximum: 500
        x-paging-page-size: true
  ListResponse:
    type: object
    properties:
      things:
        type: array
        x-paging-result: true
        items: {type: string}
      nextToken:
        type: string
        x-paging-output-token: true
  CountResponse:
    type: object
    properties:
      total:
        type: integer
        format: int64
        x-paging-result: true
      nextToken:
        type: string
        x-paging-output-token: true
  CheckResponse:
    type: object
    properties:
      flag:
        type: boolean
        x-paging-result: true
      nextToken:
        type: string
        x-paging-output-token: true
`

func loadOp(t *testing.T, name string) *model.Operation {
	t.Helper()
	svc, err := model.Load([]byte(listDoc))
	require.NoError(t, err)
	op, err := svc.Operation(name)
	require.NoError(t, err)
	return op
}

// listBackend serves pages from a fixed dataset, honoring the negotiated
// page size up to its own per-page cap of 2 items.
type listBackend struct {
	items     []any
	pageCap   int
	requested []int
}

func (b *listBackend) Invoke(_ context.Context, _ *model.Operation, args map[string]any) (any, error) {
	start := 0
	if tok, ok := args["startingToken"].(string); ok {
		start, _ = strconv.Atoi(tok)
	}
	size := b.pageCap
	if requested, ok := args["pageSize"].(int); ok {
		b.requested = append(b.requested, requested)
		if requested < size {
			size = requested
		}
	}
	end := start + size
	if end > len(b.items) {
		end = len(b.items)
	}
	page := map[string]any{"things": b.items[start:end]}
	if end < len(b.items) {
		page["nextToken"] = strconv.Itoa(end)
	}
	return page, nil
}

func dataset(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = "thing-" + strconv.Itoa(i)
	}
	return items
}

func TestBuildFullResult_StopsAtMaxItemsAndSurfacesToken(t *testing.T) {
	backend := &listBackend{items: dataset(10), pageCap: 2}
	pager, err := New(backend, loadOp(t, "listThings"), nil, Options{MaxItems: 5}, nil)
	require.NoError(t, err)

	full, err := pager.BuildFullResult(context.Background())
	require.NoError(t, err)

	items := full["things"].([]any)
	assert.Len(t, items, 5)
	assert.Equal(t, dataset(5), items)
	assert.Equal(t, "5", full["nextToken"], "the third page's token is surfaced as the continuation")
	assert.Equal(t, []int{5, 3, 1}, backend.requested, "page size tracks the remaining item budget")
}

func TestBuildFullResult_DrainedRunHasNoContinuation(t *testing.T) {
	backend := &listBackend{items: dataset(6), pageCap: 2}
	pager, err := New(backend, loadOp(t, "listThings"), nil, Options{MaxItems: 6}, nil)
	require.NoError(t, err)

	full, err := pager.BuildFullResult(context.Background())
	require.NoError(t, err)
	assert.Len(t, full["things"], 6)
	_, present := full["nextToken"]
	assert.False(t, present)
	assert.Empty(t, pager.NextToken())
}

func TestPager_IsLazyAndSinglePass(t *testing.T) {
	backend := &listBackend{items: dataset(4), pageCap: 2}
	pager, err := New(backend, loadOp(t, "listThings"), nil, Options{MaxItems: 10}, nil)
	require.NoError(t, err)

	require.True(t, pager.HasMorePages())
	page, err := pager.NextPage(context.Background())
	require.NoError(t, err)
	assert.Len(t, page["things"], 2)

	require.True(t, pager.HasMorePages())
	_, err = pager.NextPage(context.Background())
	require.NoError(t, err)

	assert.False(t, pager.HasMorePages())
	_, err = pager.NextPage(context.Background())
	assert.ErrorIs(t, err, &Error{Code: ErrCodeExhausted})
}

func TestPager_StartingTokenResumes(t *testing.T) {
	backend := &listBackend{items: dataset(6), pageCap: 2}
	pager, err := New(backend, loadOp(t, "listThings"), nil, Options{MaxItems: 10, StartingToken: "4"}, nil)
	require.NoError(t, err)

	full, err := pager.BuildFullResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"thing-4", "thing-5"}, full["things"])
}

// stuckBackend returns the same token on every page.
type stuckBackend struct{}

func (stuckBackend) Invoke(context.Context, *model.Operation, map[string]any) (any, error) {
	return map[string]any{
		"things":    []any{"thing"},
		"nextToken": "same",
	}, nil
}

func TestPager_RepeatedTokenFails(t *testing.T) {
	pager, err := New(stuckBackend{}, loadOp(t, "listThings"), nil, Options{MaxItems: 100}, nil)
	require.NoError(t, err)

	_, err = pager.NextPage(context.Background())
	require.NoError(t, err, "first page is fine")
	_, err = pager.NextPage(context.Background())
	assert.ErrorIs(t, err, ErrStuckToken)
	assert.False(t, pager.HasMorePages())
}

// greedyBackend ignores the negotiated page size and always returns two
// items.
type greedyBackend struct{ calls int }

func (b *greedyBackend) Invoke(context.Context, *model.Operation, map[string]any) (any, error) {
	b.calls++
	return map[string]any{
		"things":    []any{"a", "b"},
		"nextToken": strconv.Itoa(b.calls),
	}, nil
}

func TestPager_OvershootFails(t *testing.T) {
	pager, err := New(&greedyBackend{}, loadOp(t, "listThings"), nil, Options{MaxItems: 5}, nil)
	require.NoError(t, err)

	_, err = pager.BuildFullResult(context.Background())
	assert.ErrorIs(t, err, ErrOvershoot)
}

// countBackend pages a numeric result, exercising the legacy sum rule.
type countBackend struct{ calls int }

func (b *countBackend) Invoke(context.Context, *model.Operation, map[string]any) (any, error) {
	b.calls++
	page := map[string]any{"total": int64(3 * b.calls)}
	if b.calls < 2 {
		page["nextToken"] = strconv.Itoa(b.calls)
	}
	return page, nil
}

func TestBuildFullResult_NumericResultsSum(t *testing.T) {
	pager, err := New(&countBackend{}, loadOp(t, "countThings"), nil, Options{MaxItems: 100}, nil)
	require.NoError(t, err)

	full, err := pager.BuildFullResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), full["total"])
}

// flagBackend pages a boolean result, which has no reduction rule.
type flagBackend struct{}

func (flagBackend) Invoke(context.Context, *model.Operation, map[string]any) (any, error) {
	return map[string]any{"flag": true, "nextToken": "n"}, nil
}

func TestBuildFullResult_UnsupportedResultKindFails(t *testing.T) {
	pager, err := New(flagBackend{}, loadOp(t, "checkThings"), nil, Options{MaxItems: 100}, nil)
	require.NoError(t, err)

	_, err = pager.BuildFullResult(context.Background())
	assert.ErrorIs(t, err, &Error{Code: ErrCodeUnsupported})
}

func TestPager_MissingResultMemberMeansZeroItems(t *testing.T) {
	backend := invokerFunc(func() (any, error) {
		return map[string]any{}, nil // no result member, no token
	})
	pager, err := New(backend, loadOp(t, "listThings"), nil, Options{MaxItems: 5}, nil)
	require.NoError(t, err)

	full, err := pager.BuildFullResult(context.Background())
	require.NoError(t, err)
	assert.Empty(t, full)
}

func TestBuildFullResult_NullResultMemberMeansZeroItems(t *testing.T) {
	var calls int
	backend := invokerFunc(func() (any, error) {
		calls++
		if calls == 1 {
			// A present-but-null result member, as the wire decoder
			// yields for an explicit JSON null.
			return map[string]any{"things": nil, "nextToken": "1"}, nil
		}
		return map[string]any{"things": []any{"thing-0"}}, nil
	})
	pager, err := New(backend, loadOp(t, "listThings"), nil, Options{MaxItems: 5}, nil)
	require.NoError(t, err)

	full, err := pager.BuildFullResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"thing-0"}, full["things"])
}

func TestNew_RejectsNonPageableOperation(t *testing.T) {
	_, err := New(flagBackend{}, loadOp(t, "createThing"), nil, Options{}, nil)
	assert.ErrorIs(t, err, &Error{Code: ErrCodeNotPageable})
}

type invokerFunc func() (any, error)

func (f invokerFunc) Invoke(context.Context, *model.Operation, map[string]any) (any, error) {
	return f()
}
