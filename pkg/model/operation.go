package model

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cloudera/cdpcore/pkg/shape"
)

// defaultMaxItems applies when a paginated operation does not declare its
// own default.
const defaultMaxItems = 100

// Paging describes the pagination binding of one operation: which input
// and output members carry the continuation token, which output member
// carries the page of results, and which input member negotiates the page
// size.
type Paging struct {
	InputToken      string
	OutputToken     string
	Result          string
	PageSize        string
	DefaultMaxItems int
}

// Supported reports whether the operation carries enough annotations to
// paginate at all.
func (p *Paging) Supported() bool {
	return p != nil && p.InputToken != "" && p.OutputToken != "" && p.Result != ""
}

// Operation is the resolved description of one callable action. Input and
// output shapes and the pagination binding resolve lazily on first access
// and are cached on the operation.
type Operation struct {
	Name          string
	Method        string
	Path          string
	Documentation string

	resolver *shape.Resolver
	entry    *yaml.Node

	input          *shape.Shape
	inputResolved  bool
	output         *shape.Shape
	outputResolved bool
	paging         *Paging
}

// InputShape resolves the operation's input shape. Nil when the operation
// declares no input.
func (o *Operation) InputShape() (*shape.Shape, error) {
	if o.inputResolved {
		return o.input, nil
	}
	params := nodeGet(o.entry, "parameters")
	if params == nil || len(params.Content) == 0 {
		o.inputResolved = true
		return nil, nil
	}
	schema := nodeGet(params.Content[0], "schema")
	if schema == nil {
		o.inputResolved = true
		return nil, nil
	}
	s, err := o.resolver.Resolve("", schema)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", o.Name, err)
	}
	o.input = s
	o.inputResolved = true
	return s, nil
}

// OutputShape resolves the operation's output shape. Nil when the
// operation declares no output.
func (o *Operation) OutputShape() (*shape.Shape, error) {
	if o.outputResolved {
		return o.output, nil
	}
	schema := nodeGet(nodeGet(nodeGet(o.entry, "responses"), "200"), "schema")
	if schema == nil {
		o.outputResolved = true
		return nil, nil
	}
	s, err := o.resolver.Resolve("", schema)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", o.Name, err)
	}
	o.output = s
	o.outputResolved = true
	return s, nil
}

// Paging derives the pagination binding from the shape annotations of the
// operation's input and output members.
func (o *Operation) Paging() (*Paging, error) {
	if o.paging != nil {
		return o.paging, nil
	}
	p := &Paging{DefaultMaxItems: defaultMaxItems}
	if v := nodeString(o.entry, "x-paging-default-max-items"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("operation %s: x-paging-default-max-items %q is not an integer", o.Name, v)
		}
		p.DefaultMaxItems = n
	}

	input, err := o.InputShape()
	if err != nil {
		return nil, err
	}
	if input != nil {
		for _, m := range input.Members() {
			if m.Shape.Annotations.PagingInputToken {
				p.InputToken = m.Name
			}
			if m.Shape.Annotations.PagingPageSize {
				p.PageSize = m.Name
			}
		}
	}

	output, err := o.OutputShape()
	if err != nil {
		return nil, err
	}
	if output != nil {
		for _, m := range output.Members() {
			if m.Shape.Annotations.PagingOutputToken {
				p.OutputToken = m.Name
			}
			if m.Shape.Annotations.PagingResult {
				p.Result = m.Name
			}
		}
	}

	o.paging = p
	return p, nil
}

// CanPaginate reports whether the operation declares a complete pagination
// binding.
func (o *Operation) CanPaginate() bool {
	p, err := o.Paging()
	return err == nil && p.Supported()
}
