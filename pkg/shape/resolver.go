package shape

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// refPrefix is the only reference form service documents use.
const refPrefix = "#/definitions/"

// Resolver turns raw declarations into Shapes. Each resolver owns its own
// definitions table and its own memoization arena: two resolvers built from
// different documents never share Shape instances.
type Resolver struct {
	definitions map[string]*yaml.Node
	cache       map[string]*Shape
}

// NewResolver creates a resolver over a definitions mapping node. The node
// may be nil for documents with no named definitions.
func NewResolver(definitions *yaml.Node) (*Resolver, error) {
	r := &Resolver{
		definitions: map[string]*yaml.Node{},
		cache:       map[string]*Shape{},
	}
	definitions = deref(definitions)
	if definitions == nil {
		return r, nil
	}
	if definitions.Kind != yaml.MappingNode {
		return nil, &Error{Code: ErrCodeMalformed, Message: "definitions is not a mapping"}
	}
	for i := 0; i+1 < len(definitions.Content); i += 2 {
		r.definitions[definitions.Content[i].Value] = definitions.Content[i+1]
	}
	return r, nil
}

// ResolveRef resolves a "#/definitions/Name" pointer against the
// definitions table.
func (r *Resolver) ResolveRef(ref string) (*Shape, error) {
	name, ok := strings.CutPrefix(ref, refPrefix)
	if !ok {
		return nil, &Error{Code: ErrCodeUnknownReference, Message: fmt.Sprintf("unsupported reference form %q", ref)}
	}
	decl, ok := r.definitions[name]
	if !ok {
		return nil, &Error{Code: ErrCodeUnknownReference, Message: fmt.Sprintf("reference to unknown definition %q", name)}
	}
	return r.resolve(name, decl, true)
}

// Resolve resolves a declaration into a Shape. Named resolutions are
// memoized per resolver, so repeated references to the same definition do
// not re-walk the declaration tree.
func (r *Resolver) Resolve(name string, decl *yaml.Node) (*Shape, error) {
	return r.resolve(name, decl, name != "")
}

func (r *Resolver) resolve(name string, decl *yaml.Node, memoize bool) (*Shape, error) {
	if memoize {
		if s, ok := r.cache[name]; ok {
			return s, nil
		}
	}
	decl = deref(decl)
	if decl == nil || decl.Kind != yaml.MappingNode {
		return nil, &Error{Code: ErrCodeMalformed, Message: fmt.Sprintf("declaration of %q is not a mapping", name)}
	}

	if ref := mappingGet(decl, "$ref"); ref != nil {
		return r.ResolveRef(ref.Value)
	}

	typeNode := mappingGet(decl, "type")
	if typeNode == nil {
		return nil, &Error{Code: ErrCodeMissingType, Message: fmt.Sprintf("declaration of %q has no type", name)}
	}

	s := &Shape{Name: name}
	if memoize {
		// Cache before filling so self-referential definitions
		// terminate.
		r.cache[name] = s
	}
	if err := r.fill(s, typeNode.Value, decl); err != nil {
		if memoize {
			delete(r.cache, name)
		}
		return nil, err
	}
	if doc := mappingGet(decl, "description"); doc != nil {
		s.Documentation = doc.Value
	}
	if err := parseAnnotations(&s.Annotations, decl); err != nil {
		if memoize {
			delete(r.cache, name)
		}
		return nil, err
	}
	return s, nil
}

func (r *Resolver) fill(s *Shape, typ string, decl *yaml.Node) error {
	switch typ {
	case "string":
		switch format(decl) {
		case "date-time":
			s.Kind = KindDatetime
		case "byte":
			s.Kind = KindBlob
		default:
			s.Kind = KindString
		}
	case "integer":
		if format(decl) == "int64" {
			s.Kind = KindLong
		} else {
			s.Kind = KindInteger
		}
	case "number":
		if format(decl) == "double" {
			s.Kind = KindDouble
		} else {
			s.Kind = KindFloat
		}
	case "boolean":
		s.Kind = KindBoolean
	case "array":
		return r.fillArray(s, decl)
	case "object":
		return r.fillObject(s, decl)
	default:
		return &Error{Code: ErrCodeUnsupportedKind, Message: fmt.Sprintf("shape %q has unsupported type %q", s.Name, typ)}
	}
	return nil
}

func (r *Resolver) fillArray(s *Shape, decl *yaml.Node) error {
	items := mappingGet(decl, "items")
	if items == nil {
		return &Error{Code: ErrCodeMalformed, Message: fmt.Sprintf("array shape %q has no items declaration", s.Name)}
	}
	member, err := r.resolve("", items, false)
	if err != nil {
		return err
	}
	s.Kind = KindArray
	s.ArrayMember = member
	return nil
}

func (r *Resolver) fillObject(s *Shape, decl *yaml.Node) error {
	if ap := mappingGet(decl, "additionalProperties"); ap != nil {
		value := deref(ap)
		if value == nil || value.Kind != yaml.MappingNode {
			return &Error{Code: ErrCodeFreeformMap, Message: fmt.Sprintf("shape %q declares a freeform map", s.Name)}
		}
		valueShape, err := r.resolve("", value, false)
		if err != nil {
			return err
		}
		s.Kind = KindMap
		s.MapKey = &Shape{Name: "key", Kind: KindString}
		s.MapValue = valueShape
		return nil
	}

	s.Kind = KindObject
	s.required = map[string]struct{}{}
	if req := deref(mappingGet(decl, "required")); req != nil {
		for _, n := range req.Content {
			s.required[n.Value] = struct{}{}
		}
	}
	props := deref(mappingGet(decl, "properties"))
	if props == nil {
		return nil
	}
	if props.Kind != yaml.MappingNode {
		return &Error{Code: ErrCodeMalformed, Message: fmt.Sprintf("properties of %q is not a mapping", s.Name)}
	}
	for i := 0; i+1 < len(props.Content); i += 2 {
		memberName := props.Content[i].Value
		memberShape, err := r.resolve("", props.Content[i+1], false)
		if err != nil {
			return err
		}
		s.members = append(s.members, Member{Name: memberName, Shape: memberShape})
	}
	return nil
}

func parseAnnotations(a *Annotations, decl *yaml.Node) error {
	var err error
	if a.Minimum, err = floatAnnotation(decl, "minimum"); err != nil {
		return err
	}
	if a.Maximum, err = floatAnnotation(decl, "maximum"); err != nil {
		return err
	}
	if a.MinLength, err = intAnnotation(decl, "minLength"); err != nil {
		return err
	}
	if a.MaxLength, err = intAnnotation(decl, "maxLength"); err != nil {
		return err
	}
	if enum := deref(mappingGet(decl, "enum")); enum != nil {
		for _, n := range enum.Content {
			a.Enum = append(a.Enum, n.Value)
		}
	}
	a.PagingInputToken = boolAnnotation(decl, "x-paging-input-token")
	a.PagingOutputToken = boolAnnotation(decl, "x-paging-output-token")
	a.PagingResult = boolAnnotation(decl, "x-paging-result")
	a.PagingPageSize = boolAnnotation(decl, "x-paging-page-size")
	a.NoParamFile = boolAnnotation(decl, "x-no-paramfile")
	a.Undocumented = boolAnnotation(decl, "x-undocumented")
	return nil
}

func floatAnnotation(decl *yaml.Node, key string) (*float64, error) {
	n := mappingGet(decl, key)
	if n == nil {
		return nil, nil
	}
	v, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return nil, &Error{Code: ErrCodeMalformed, Message: fmt.Sprintf("%s annotation %q is not numeric", key, n.Value), Cause: err}
	}
	return &v, nil
}

func intAnnotation(decl *yaml.Node, key string) (*int, error) {
	n := mappingGet(decl, key)
	if n == nil {
		return nil, nil
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		return nil, &Error{Code: ErrCodeMalformed, Message: fmt.Sprintf("%s annotation %q is not an integer", key, n.Value), Cause: err}
	}
	return &v, nil
}

func boolAnnotation(decl *yaml.Node, key string) bool {
	n := mappingGet(decl, key)
	return n != nil && n.Value == "true"
}

func format(decl *yaml.Node) string {
	if n := mappingGet(decl, "format"); n != nil {
		return n.Value
	}
	return ""
}

// mappingGet finds the value node for key in a mapping node.
func mappingGet(n *yaml.Node, key string) *yaml.Node {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// deref unwraps document and alias nodes.
func deref(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}
