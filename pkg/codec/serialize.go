// Package codec converts between native value trees and the JSON wire
// format, directed by the shapes of the operation being invoked.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cloudera/cdpcore/pkg/model"
	"github.com/cloudera/cdpcore/pkg/shape"
)

// Request is a serialized, not-yet-signed HTTP request.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte

	// Stream, when set, replaces Body as the request payload. The
	// serializer never sets it; collaborators use it for large uploads.
	// A retried Stream must be seekable so the transport can rewind it.
	Stream io.Reader
}

// Serialize builds the wire request for an operation from a native
// argument tree. Absent (nil) values are dropped entirely; this is the
// sparse encoding the protocol expects, not an error. The caller is
// responsible for validating the tree first.
func Serialize(value any, op *model.Operation) (*Request, error) {
	req := &Request{
		Method:  op.Method,
		Path:    op.Path,
		Headers: map[string]string{},
	}

	input, err := op.InputShape()
	if err != nil {
		return nil, err
	}
	if input == nil {
		return req, nil
	}

	tree, err := serializeValue(value, input, "")
	if err != nil {
		return nil, err
	}
	if tree == nil {
		tree = map[string]any{}
	}
	body, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	req.Body = body
	req.Headers["Content-Type"] = "application/json"
	return req, nil
}

func serializeValue(v any, s *shape.Shape, path string) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch s.Kind {
	case shape.KindObject:
		return serializeObject(v, s, path)
	case shape.KindArray:
		return serializeArray(v, s, path)
	case shape.KindMap:
		return serializeMap(v, s, path)
	case shape.KindBlob:
		return serializeBlob(v)
	case shape.KindDatetime:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(time.RFC3339), nil
		}
		return v, nil
	default:
		return v, nil
	}
}

func serializeObject(v any, s *shape.Shape, path string) (any, error) {
	members, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected an object, got %T", fieldPath(path), v)
	}
	out := map[string]any{}
	for _, m := range s.Members() {
		raw, present := members[m.Name]
		if !present || raw == nil {
			continue
		}
		encoded, err := serializeValue(raw, m.Shape, joinPath(path, m.Name))
		if err != nil {
			return nil, err
		}
		if encoded != nil {
			out[m.Name] = encoded
		}
	}
	return out, nil
}

func serializeArray(v any, s *shape.Shape, path string) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected an array, got %T", fieldPath(path), v)
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		encoded, err := serializeValue(item, s.ArrayMember, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return out, nil
}

func serializeMap(v any, s *shape.Shape, path string) (any, error) {
	entries, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %s: expected a map, got %T", fieldPath(path), v)
	}
	out := map[string]any{}
	for k, raw := range entries {
		if raw == nil {
			continue
		}
		encoded, err := serializeValue(raw, s.MapValue, joinPath(path, k))
		if err != nil {
			return nil, err
		}
		if encoded != nil {
			out[k] = encoded
		}
	}
	return out, nil
}

// serializeBlob base64-encodes raw bytes. Values arriving as text are
// assumed to be base64 already and pass through unchanged.
func serializeBlob(v any) (any, error) {
	switch b := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(b), nil
	default:
		return v, nil
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func fieldPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
