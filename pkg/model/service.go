// Package model loads declarative service documents and exposes the
// resolved operation descriptions the engine executes. A document binds
// paths and HTTP methods to operation entries and carries a definitions
// table of named shapes; the document may be YAML or JSON.
package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloudera/cdpcore/pkg/shape"
)

// Service is an immutable bundle of operations plus service-level
// metadata. It owns the shape resolver shared by all of its operations.
type Service struct {
	EndpointName   string
	EndpointPrefix string
	Products       []string

	resolver   *shape.Resolver
	operations map[string]*Operation
	names      []string
}

// Load parses a service document. yaml.v3 accepts JSON input as well, so
// callers do not need to care which serialization the document uses.
func Load(data []byte) (*Service, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse service document: %w", err)
	}

	resolver, err := shape.NewResolver(docGet(&doc, "definitions"))
	if err != nil {
		return nil, err
	}

	svc := &Service{
		resolver:   resolver,
		operations: map[string]*Operation{},
	}
	svc.EndpointName = docString(&doc, "x-endpoint-name")
	svc.EndpointPrefix = docString(&doc, "x-endpoint-prefix")
	if svc.EndpointPrefix == "" {
		svc.EndpointPrefix = svc.EndpointName
	}
	if products := docGet(&doc, "x-products"); products != nil {
		for _, n := range products.Content {
			svc.Products = append(svc.Products, n.Value)
		}
	}

	if err := svc.collectOperations(docGet(&doc, "paths")); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) collectOperations(paths *yaml.Node) error {
	if paths == nil {
		return nil
	}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := paths.Content[i].Value
		methods := paths.Content[i+1]
		if methods.Kind != yaml.MappingNode {
			return fmt.Errorf("path %q is not a mapping of HTTP methods", path)
		}
		for j := 0; j+1 < len(methods.Content); j += 2 {
			method := strings.ToUpper(methods.Content[j].Value)
			entry := methods.Content[j+1]
			name := nodeString(entry, "operationId")
			if name == "" {
				return fmt.Errorf("operation at %s %s has no operationId", method, path)
			}
			if _, dup := s.operations[name]; dup {
				return fmt.Errorf("duplicate operationId %q", name)
			}
			s.operations[name] = &Operation{
				Name:     name,
				Method:   method,
				Path:     path,
				resolver: s.resolver,
				entry:    entry,
			}
			s.names = append(s.names, name)
		}
	}
	return nil
}

// Operation looks up one operation by its operationId.
func (s *Service) Operation(name string) (*Operation, error) {
	op, ok := s.operations[name]
	if !ok {
		return nil, fmt.Errorf("service %q has no operation %q", s.EndpointName, name)
	}
	return op, nil
}

// OperationNames returns the operation names in document order.
func (s *Service) OperationNames() []string {
	return s.names
}

// Resolver exposes the service's shape resolver for collaborators that
// resolve ad-hoc references.
func (s *Service) Resolver() *shape.Resolver {
	return s.resolver
}

func docGet(doc *yaml.Node, key string) *yaml.Node {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			return root.Content[i+1]
		}
	}
	return nil
}

func docString(doc *yaml.Node, key string) string {
	if n := docGet(doc, key); n != nil {
		return n.Value
	}
	return ""
}

func nodeGet(n *yaml.Node, key string) *yaml.Node {
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

func nodeString(n *yaml.Node, key string) string {
	if v := nodeGet(n, key); v != nil {
		return v.Value
	}
	return ""
}
